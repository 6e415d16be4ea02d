package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/apps/shared"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/calendar"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/progress"
	"github.com/trezcool/darasa/core/user"
	appfs "github.com/trezcool/darasa/fs"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/services/scheduler"
	"github.com/trezcool/darasa/storage/files"
)

func main() {
	conf := core.NewConfig()

	logger := newLogger(conf, "API : ")

	if err := run(conf, logger, newLogger(conf, "DB : "), newLogger(conf, "CRON : ")); err != nil {
		logger.Fatal(fmt.Sprintf("api: %v", err), err)
	}
}

func newLogger(conf *core.Config, prefix string) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func run(conf *core.Config, logger, dbLogger, cronLogger core.Logger) error {
	// =========================================================================
	// Set up Dependencies

	repos, closeRepos, err := shared.OpenRepositories(conf, dbLogger)
	if err != nil {
		return err
	}
	defer closeRepos()

	store, err := files.New(context.Background(), conf)
	if err != nil {
		return errors.Wrap(err, "setting up file storage")
	}

	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	usrSvc := user.NewService(repos.User, mailSvc, conf)
	courseSvc := course.NewService(repos.Course)
	assignmentSvc := assignment.NewService(repos.Assignment)
	calendarSvc := calendar.NewService(repos.Calendar, courseSvc, assignmentSvc, mailSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := shared.NewValidator()
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, false, logger)
	user.LoadCommonPasswords(filepath.Join(conf.WorkDir, "assets", "common-passwords.txt.gz"), logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus scrape endpoint.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Scheduler

	if conf.Scheduler.Enabled {
		sched, err := scheduler.New(conf.Scheduler, calendarSvc, cronLogger)
		if err != nil {
			return errors.Wrap(err, "setting up scheduler")
		}
		sched.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()
			if err := sched.Stop(ctx); err != nil {
				logger.Error("scheduler did not stop in time", err)
			}
		}()
	}

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		Files:          store,
		SignalShutdown: func() { shutdown <- syscall.SIGTERM },
		UserSvc:        usrSvc,
		CourseSvc:      courseSvc,
		AssignmentSvc:  assignmentSvc,
		ProgressSvc:    progress.NewService(repos.Progress),
		CalendarSvc:    calendarSvc,
		ChatSvc:        chat.NewService(repos.Chat),
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address()))
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return errors.Wrap(err, "server error")

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			return errors.Wrap(err, "could not stop server gracefully")
		}
	}
	return nil
}
