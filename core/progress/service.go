package progress

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

type (
	Repository interface {
		StudentCourseCounts(ctx context.Context, studentID, courseID int) (Counts, error)
		CourseCounts(ctx context.Context, courseID int) (CourseCounts, error)
		// StudentCourses lists the courses the student is enrolled in.
		StudentCourses(ctx context.Context, studentID int) ([]CourseRef, error)
		// CourseStudents lists the students enrolled in the course.
		CourseStudents(ctx context.Context, courseID int) ([]StudentRef, error)
	}

	Service interface {
		CourseProgress(ctx context.Context, studentID, courseID int) (CourseProgress, error)
		OverallProgress(ctx context.Context, studentID int) (OverallProgress, error)
		TeacherCourseStats(ctx context.Context, courseID int) (CourseStats, error)
		StudentProgressForCourse(ctx context.Context, courseID int) ([]StudentProgress, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CourseProgress(ctx context.Context, studentID, courseID int) (CourseProgress, error) {
	counts, err := svc.repo.StudentCourseCounts(ctx, studentID, courseID)
	if err != nil {
		return CourseProgress{}, errors.Wrap(err, "counting course progress")
	}
	return newCourseProgress(courseID, counts), nil
}

// OverallProgress rolls up every enrolled course. The overall grade weighs each course
// average by the number of graded submissions in that course.
func (svc *service) OverallProgress(ctx context.Context, studentID int) (OverallProgress, error) {
	courses, err := svc.repo.StudentCourses(ctx, studentID)
	if err != nil {
		return OverallProgress{}, errors.Wrap(err, "querying student courses")
	}

	overall := OverallProgress{Courses: make([]CourseProgress, 0, len(courses))}
	var weighted float64
	for _, c := range courses {
		cp, err := svc.CourseProgress(ctx, studentID, c.ID)
		if err != nil {
			return OverallProgress{}, err
		}
		cp.CourseTitle = c.Title
		overall.Courses = append(overall.Courses, cp)

		overall.Total += cp.Total
		overall.Completed += cp.Completed
		weighted += cp.GradeAverage * float64(cp.Completed)
	}

	overall.Percentage = core.Round1(core.Percent(overall.Completed, overall.Total))
	if overall.Completed > 0 {
		overall.OverallGrade = core.Round1(weighted / float64(overall.Completed))
	}
	return overall, nil
}

func (svc *service) TeacherCourseStats(ctx context.Context, courseID int) (CourseStats, error) {
	counts, err := svc.repo.CourseCounts(ctx, courseID)
	if err != nil {
		return CourseStats{}, errors.Wrap(err, "counting course stats")
	}

	stats := CourseStats{
		Students:       counts.Students,
		Assignments:    counts.Assignments,
		Submissions:    counts.Submissions,
		Pending:        counts.Submissions - counts.Graded,
		SubmissionRate: core.Round1(core.Percent(counts.Submissions, counts.Students*counts.Assignments)),
	}
	if counts.Graded > 0 {
		stats.AverageGrade = core.Round1(counts.GradeSum / float64(counts.Graded))
	}
	return stats, nil
}

func (svc *service) StudentProgressForCourse(ctx context.Context, courseID int) ([]StudentProgress, error) {
	students, err := svc.repo.CourseStudents(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course students")
	}
	sort.SliceStable(students, func(i, j int) bool {
		return strings.ToLower(students[i].Name) < strings.ToLower(students[j].Name)
	})

	progress := make([]StudentProgress, 0, len(students))
	for _, s := range students {
		cp, err := svc.CourseProgress(ctx, s.ID, courseID)
		if err != nil {
			return nil, err
		}
		progress = append(progress, StudentProgress{
			StudentID:      s.ID,
			Name:           s.Name,
			Email:          s.Email,
			CourseProgress: cp,
		})
	}
	return progress, nil
}

func newCourseProgress(courseID int, c Counts) CourseProgress {
	cp := CourseProgress{
		CourseID:   courseID,
		Total:      c.Total,
		Completed:  c.Completed,
		Percentage: core.Round1(core.Percent(c.Completed, c.Total)),
	}
	if c.Completed > 0 {
		cp.GradeAverage = core.Round1(c.GradeSum / float64(c.Completed))
	}
	return cp
}
