package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/apps/shared"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
	appfs "github.com/trezcool/darasa/fs"
	logsvc "github.com/trezcool/darasa/services/logger"
)

// NewLogger returns a logger that discards everything and never reports to Rollbar.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(ioutil.Discard, "TEST : ", 0), conf)
}

// NewValidator returns the validator the binaries use.
func NewValidator() (*validator.Validate, ut.Translator) {
	return shared.NewValidator()
}

// LoadEmailTemplates parses the embedded e-mail templates strictly.
func LoadEmailTemplates(logger core.Logger) {
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, true, logger)
}

func CreateUser(t *testing.T, repo user.Repository, name, email, pwd string, role user.Role, createdAt ...time.Time) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, title string, teacher user.User) course.Course {
	c, err := repo.CreateCourse(context.Background(), course.Course{
		Title:       title,
		Description: title + " description",
		TeacherID:   teacher.ID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return c
}

func Enroll(t *testing.T, repo course.Repository, student user.User, c course.Course) {
	if _, err := repo.CreateEnrollment(context.Background(), student.ID, c.ID); err != nil {
		t.Fatalf("enroll() failed: %v", err)
	}
}

func CreateAssignment(t *testing.T, repo assignment.Repository, c course.Course, title string, due time.Time) assignment.Assignment {
	a, err := repo.CreateAssignment(context.Background(), assignment.Assignment{
		CourseID:    c.ID,
		Title:       title,
		Description: title + " description",
		DueDate:     due.UTC(),
		MaxPoints:   assignment.DefaultMaxPoints,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createAssignment() failed: %v", err)
	}
	return a
}

// MockNow freezes core.NowFunc at t until the returned func is called.
func MockNow(t time.Time) (restore func()) {
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return t.UTC() }
	return func() { core.NowFunc = orig }
}
