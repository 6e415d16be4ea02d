// Package shared wires the pieces both binaries need: repositories and validation.
package shared

import (
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/calendar"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/progress"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/database"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	"github.com/trezcool/darasa/storage/database/sqlxrepos"
)

// EngineMemory keeps everything in process memory. Data is lost on exit.
const EngineMemory = "memory"

type Repositories struct {
	User       user.Repository
	Course     course.Repository
	Assignment assignment.Repository
	Progress   progress.Repository
	Calendar   calendar.Repository
	Chat       chat.Repository
}

// OpenRepositories opens the database selected by conf.Database.Engine, migrating it up first.
// The returned func closes it.
func OpenRepositories(conf *core.Config, logger core.Logger) (*Repositories, func(), error) {
	if conf.Database.Engine == EngineMemory {
		logger.Warn("using the in-memory database: data will not survive a restart")
		db := dummydb.Open()
		return &Repositories{
			User:       dummydb.NewUserRepository(db),
			Course:     dummydb.NewCourseRepository(db),
			Assignment: dummydb.NewAssignmentRepository(db),
			Progress:   dummydb.NewProgressRepository(db),
			Calendar:   dummydb.NewCalendarRepository(db),
			Chat:       dummydb.NewChatRepository(db),
		}, func() {}, nil
	}

	db, err := OpenDB(conf)
	if err != nil {
		return nil, nil, err
	}
	if err = database.Migrate(db, "up"); err != nil {
		_ = db.Close()
		return nil, nil, errors.Wrap(err, "migrating database")
	}

	closeFn := func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}
	return NewSQLRepositories(db), closeFn, nil
}

// OpenDB creates the postgres database when missing and connects to it.
func OpenDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(conf)
	return db, errors.Wrap(err, "opening database")
}

func NewSQLRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		User:       sqlxrepos.NewUserRepository(db),
		Course:     sqlxrepos.NewCourseRepository(db),
		Assignment: sqlxrepos.NewAssignmentRepository(db),
		Progress:   sqlxrepos.NewProgressRepository(db),
		Calendar:   sqlxrepos.NewCalendarRepository(db),
		Chat:       sqlxrepos.NewChatRepository(db),
	}
}

// NewValidator returns a validator with every custom tag and its english translation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	calendar.InitValidators(validate, translator)
	return validate, translator
}
