package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) withTeacher(c course.Course) course.Course {
	c.TeacherName = repo.db.userName(c.TeacherID)
	return c
}

// newestFirst sorts by creation date, then id, descending.
func newestFirst(courses []course.Course) []course.Course {
	sort.Slice(courses, func(i, j int) bool {
		if courses[i].CreatedAt.Equal(courses[j].CreatedAt) {
			return courses[i].ID > courses[j].ID
		}
		return courses[i].CreatedAt.After(courses[j].CreatedAt)
	})
	return courses
}

func (repo *courseRepository) filter(keep func(c course.Course) bool) []course.Course {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0)
	for _, c := range repo.db.courses {
		if keep(*c) {
			courses = append(courses, repo.withTeacher(*c))
		}
	}
	return newestFirst(courses)
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = repo.db.nextID()
	repo.db.courses[c.ID] = &c
	return repo.withTeacher(c), nil
}

func (repo *courseRepository) QueryCourses(context.Context) ([]course.Course, error) {
	return repo.filter(func(course.Course) bool { return true }), nil
}

func (repo *courseRepository) QueryCoursesByTeacher(_ context.Context, teacherID int) ([]course.Course, error) {
	return repo.filter(func(c course.Course) bool { return c.TeacherID == teacherID }), nil
}

func (repo *courseRepository) QueryCoursesByStudent(_ context.Context, studentID int) ([]course.Course, error) {
	return repo.filter(func(c course.Course) bool { return repo.db.enrolled(studentID, c.ID) }), nil
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id int) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return repo.withTeacher(*c), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id, teacherID int) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.courses[id]
	if !ok || c.TeacherID != teacherID {
		return false, nil
	}
	repo.db.deleteCourseCascade(id)
	return true, nil
}

func (repo *courseRepository) CreateEnrollment(_ context.Context, studentID, courseID int) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.db.enrolled(studentID, courseID) {
		return false, nil
	}
	id := repo.db.nextID()
	repo.db.enrollments[id] = &course.Enrollment{
		ID:             id,
		StudentID:      studentID,
		CourseID:       courseID,
		EnrollmentDate: core.NowFunc(),
	}
	return true, nil
}

func (repo *courseRepository) EnrollmentExists(_ context.Context, studentID, courseID int) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.enrolled(studentID, courseID), nil
}

func (repo *courseRepository) QueryEnrolledStudents(_ context.Context, courseID int) ([]course.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var enrollments []course.Enrollment
	for _, e := range repo.db.enrollments {
		if e.CourseID == courseID {
			enrollments = append(enrollments, *e)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].ID > enrollments[j].ID })

	students := make([]course.Student, 0, len(enrollments))
	for _, e := range enrollments {
		if usr, ok := repo.db.users[e.StudentID]; ok {
			students = append(students, course.Student{
				ID:             usr.ID,
				Name:           usr.Name,
				Email:          usr.Email,
				EnrollmentDate: e.EnrollmentDate,
			})
		}
	}
	return students, nil
}
