package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/trezcool/mahudhurio/apps/api/echo"
	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/assignment"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/roster"
	"github.com/trezcool/mahudhurio/core/user"
	"github.com/trezcool/mahudhurio/services/email"
	"github.com/trezcool/mahudhurio/services/logger"
	"github.com/trezcool/mahudhurio/storage/database"
	"github.com/trezcool/mahudhurio/storage/database/sqlx"
)

func main() {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	appLogger := logsvc.NewRollbarLogger(stdLogger, core.Conf)

	if err := run(appLogger); err != nil {
		appLogger.Fatal("api: "+err.Error(), err)
	}
}

func run(appLogger core.Logger) error {
	// set up DB
	db, err := database.Open(core.Conf)
	if err != nil {
		return err
	}
	defer db.Close()

	if err = database.Migrate(db.DB); err != nil {
		return err
	}

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(appLogger)
	}
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc)
	rosterSvc := roster.NewService(sqlxrepos.NewRosterRepository(db))
	assignSvc := assignment.NewService(sqlxrepos.NewAssignmentRepository(db))
	attendSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(db), assignSvc, appLogger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Address:        core.Conf.ServerAddress(),
			UserSvc:        usrSvc,
			RosterSvc:      rosterSvc,
			AssignmentSvc:  assignSvc,
			AttendanceSvc:  attendSvc,
			Logger:         appLogger,
			SignalShutdown: func() { shutdown <- syscall.SIGTERM },
		},
	)
	serverErrs := make(chan error, 1)
	go func() {
		appLogger.Info("API server listening on " + core.Conf.ServerAddress())
		serverErrs <- app.Start()
	}()

	select {
	case err = <-serverErrs:
		return err
	case sig := <-shutdown:
		appLogger.Info("shutting down: " + sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()
		if err = app.Stop(ctx); err != nil {
			return err
		}
	}
	return nil
}
