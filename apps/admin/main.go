package main

import (
	"log"
	"os"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/user"
	emailsvc "github.com/tahanan-ph/tahanan/services/email"
	"github.com/tahanan-ph/tahanan/storage/database"
	sqlxrepos "github.com/tahanan-ph/tahanan/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	// start CLI
	cli := commandLine{
		db:     db,
		usrSvc: user.NewService(sqlxrepos.NewUserRepository(db), emailsvc.NewConsoleService(conf), conf),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
