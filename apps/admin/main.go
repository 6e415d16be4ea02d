package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/darasa/apps/shared"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/calendar"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
	appfs "github.com/trezcool/darasa/fs"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	if conf.Database.Engine == shared.EngineMemory {
		logger.Fatal("the admin CLI needs a postgres database")
	}
	db, err := shared.OpenDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()
	repos := shared.NewSQLRepositories(db)

	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, false, logger)

	// start CLI
	cli := newCommandLine(db, repos, mailSvc, conf)
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}

func newCommandLine(db *sqlx.DB, repos *shared.Repositories, mailSvc core.EmailService, conf *core.Config) *commandLine {
	courseSvc := course.NewService(repos.Course)
	assignmentSvc := assignment.NewService(repos.Assignment)
	return &commandLine{
		db:     db,
		out:    os.Stdout,
		usrSvc: user.NewService(repos.User, mailSvc, conf),
		jobs:   calendar.NewService(repos.Calendar, courseSvc, assignmentSvc, mailSvc),
	}
}
