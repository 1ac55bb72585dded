package main

import (
	"context"

	"github.com/sistemanotas/notas/storage/database"
)

var migrateFunc = database.RunMigrationCommand // mockable

func (cli *commandLine) migrate(args []string) error {
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return migrateFunc(context.Background(), cli.db, cli.engine, args[0], arguments...)
}
