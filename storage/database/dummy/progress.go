package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core/progress"
)

type progressRepository struct {
	db *DB
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *DB) progress.Repository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) StudentCourseCounts(_ context.Context, studentID, courseID int) (progress.Counts, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var counts progress.Counts
	for _, a := range repo.db.assignments {
		if a.CourseID != courseID {
			continue
		}
		counts.Total++
		for _, s := range repo.db.submissions {
			if s.AssignmentID == a.ID && s.StudentID == studentID && s.Grade != nil {
				counts.Completed++
				counts.GradeSum += *s.Grade
			}
		}
	}
	return counts, nil
}

func (repo *progressRepository) CourseCounts(_ context.Context, courseID int) (progress.CourseCounts, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var counts progress.CourseCounts
	for _, e := range repo.db.enrollments {
		if e.CourseID == courseID {
			counts.Students++
		}
	}
	for _, a := range repo.db.assignments {
		if a.CourseID != courseID {
			continue
		}
		counts.Assignments++
		for _, s := range repo.db.submissions {
			if s.AssignmentID != a.ID {
				continue
			}
			counts.Submissions++
			if s.Grade != nil {
				counts.Graded++
				counts.GradeSum += *s.Grade
			}
		}
	}
	return counts, nil
}

func (repo *progressRepository) StudentCourses(_ context.Context, studentID int) ([]progress.CourseRef, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]progress.CourseRef, 0)
	for _, c := range repo.db.courses {
		if repo.db.enrolled(studentID, c.ID) {
			courses = append(courses, progress.CourseRef{ID: c.ID, Title: c.Title})
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses, nil
}

func (repo *progressRepository) CourseStudents(_ context.Context, courseID int) ([]progress.StudentRef, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]progress.StudentRef, 0)
	for _, e := range repo.db.enrollments {
		if e.CourseID != courseID {
			continue
		}
		if usr, ok := repo.db.users[e.StudentID]; ok {
			students = append(students, progress.StudentRef{ID: usr.ID, Name: usr.Name, Email: usr.Email})
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}
