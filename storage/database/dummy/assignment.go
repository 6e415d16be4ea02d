package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/course"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) withCourse(a assignment.Assignment) assignment.Assignment {
	if c, ok := repo.db.courses[a.CourseID]; ok {
		a.CourseTitle = c.Title
		a.TeacherID = c.TeacherID
	}
	return a
}

func (repo *assignmentRepository) withStudent(s assignment.Submission) assignment.Submission {
	s.StudentName = repo.db.userName(s.StudentID)
	return s
}

func (repo *assignmentRepository) findSubmission(assignmentID, studentID int) *assignment.Submission {
	for _, s := range repo.db.submissions {
		if s.AssignmentID == assignmentID && s.StudentID == studentID {
			return s
		}
	}
	return nil
}

func sortByDueDate(assignments []assignment.Assignment) []assignment.Assignment {
	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].DueDate.Equal(assignments[j].DueDate) {
			return assignments[i].ID < assignments[j].ID
		}
		return assignments[i].DueDate.Before(assignments[j].DueDate)
	})
	return assignments
}

func latestFirst(subs []assignment.Submission) []assignment.Submission {
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].SubmissionDate.Equal(subs[j].SubmissionDate) {
			return subs[i].ID > subs[j].ID
		}
		return subs[i].SubmissionDate.After(subs[j].SubmissionDate)
	})
	return subs
}

func (repo *assignmentRepository) CreateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[a.CourseID]; !ok {
		return assignment.Assignment{}, course.ErrNotFound
	}
	a.ID = repo.db.nextID()
	repo.db.assignments[a.ID] = &a
	return repo.withCourse(a), nil
}

func (repo *assignmentRepository) QueryAssignmentsByCourse(_ context.Context, courseID int) ([]assignment.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	assignments := make([]assignment.Assignment, 0)
	for _, a := range repo.db.assignments {
		if a.CourseID == courseID {
			assignments = append(assignments, repo.withCourse(*a))
		}
	}
	return sortByDueDate(assignments), nil
}

func (repo *assignmentRepository) QueryAllAssignments(context.Context) ([]assignment.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	assignments := make([]assignment.Assignment, 0, len(repo.db.assignments))
	for _, a := range repo.db.assignments {
		assignments = append(assignments, repo.withCourse(*a))
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].ID < assignments[j].ID })
	return assignments, nil
}

func (repo *assignmentRepository) GetAssignmentByID(_ context.Context, id int) (assignment.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		return repo.withCourse(*a), nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) DeleteAssignment(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assignments[id]; !ok {
		return assignment.ErrNotFound
	}
	repo.db.deleteAssignmentCascade(id)
	return nil
}

func (repo *assignmentRepository) GetSubmission(_ context.Context, assignmentID, studentID int) (assignment.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s := repo.findSubmission(assignmentID, studentID); s != nil {
		return repo.withStudent(*s), nil
	}
	return assignment.Submission{}, assignment.ErrSubmissionNotFound
}

func (repo *assignmentRepository) UpsertSubmission(_ context.Context, s assignment.Submission) (assignment.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assignments[s.AssignmentID]; !ok {
		return assignment.Submission{}, assignment.ErrNotFound
	}
	if existing := repo.findSubmission(s.AssignmentID, s.StudentID); existing != nil {
		existing.FilePath = s.FilePath
		existing.SubmissionDate = s.SubmissionDate
		return repo.withStudent(*existing), nil
	}
	s.ID = repo.db.nextID()
	s.Grade = nil
	s.Feedback = ""
	repo.db.submissions[s.ID] = &s
	return repo.withStudent(s), nil
}

func (repo *assignmentRepository) QuerySubmissionsByAssignment(_ context.Context, assignmentID int) ([]assignment.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := make([]assignment.Submission, 0)
	for _, s := range repo.db.submissions {
		if s.AssignmentID == assignmentID {
			subs = append(subs, repo.withStudent(*s))
		}
	}
	return latestFirst(subs), nil
}

func (repo *assignmentRepository) QuerySubmissionsByStudent(_ context.Context, courseID, studentID int) ([]assignment.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := make([]assignment.Submission, 0)
	for _, s := range repo.db.submissions {
		a, ok := repo.db.assignments[s.AssignmentID]
		if ok && a.CourseID == courseID && s.StudentID == studentID {
			subs = append(subs, repo.withStudent(*s))
		}
	}
	return latestFirst(subs), nil
}

func (repo *assignmentRepository) GradeSubmission(_ context.Context, assignmentID, studentID int, grade float64, feedback string) (assignment.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s := repo.findSubmission(assignmentID, studentID)
	if s == nil {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	s.Grade = &grade
	s.Feedback = feedback
	return repo.withStudent(*s), nil
}
