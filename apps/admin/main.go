package main

import (
	"log"
	"os"

	"github.com/sistemanotas/notas/core"
	logsvc "github.com/sistemanotas/notas/services/logger"
	"github.com/sistemanotas/notas/storage/database"
	sqlxrepos "github.com/sistemanotas/notas/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	// start CLI
	cli := commandLine{
		db:         db,
		engine:     conf.Database.Engine,
		usrRepo:    sqlxrepos.NewUserRepository(db),
		courseRepo: sqlxrepos.NewCourseRepository(db),
		gradeRepo:  sqlxrepos.NewGradeRepository(db),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("error: "+err.Error(), err)
		}
		os.Exit(1)
	}
}
