package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/miradi/apps/api/echo"
	"github.com/trezcool/miradi/core"
	"github.com/trezcool/miradi/core/project"
	"github.com/trezcool/miradi/core/registration"
	"github.com/trezcool/miradi/core/user"
	emailsvc "github.com/trezcool/miradi/services/email"
	logsvc "github.com/trezcool/miradi/services/logger"
	"github.com/trezcool/miradi/storage/database"
	sqlxrepos "github.com/trezcool/miradi/storage/database/sqlx"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// set up logger
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	// set up DB
	db, err := setUpDB()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() { _ = db.Close() }()
	dbx := sqlx.NewDb(db, core.Conf.Database.Engine)

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(dbx), mailSvc)
	prjSvc := project.NewService(sqlxrepos.NewProjectRepository(dbx))
	regSvc := registration.NewService(
		sqlxrepos.NewRegistrationRepository(dbx),
		prjSvc, usrSvc, mailSvc,
		core.NewCache(),
	)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Addr:            core.Conf.Server.Host + ":" + core.Conf.Server.Port,
			Logger:          logger,
			UserSvc:         usrSvc,
			ProjectSvc:      prjSvc,
			RegistrationSvc: regSvc,
		},
	)

	go app.Start()
	logger.Info(fmt.Sprintf("Application started : version %q", core.Conf.Build))

	// graceful shutdown
	sig := <-app.ShutdownSignal()
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = app.Stop(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
	logger.Info("Application stopped")
}

func setUpDB() (*sql.DB, error) {
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		return nil, err
	}

	db, err := database.Open(core.Conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
