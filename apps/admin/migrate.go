package main

import (
	"github.com/elimuhub/elimu/storage/database"
)

var migrateRunFunc = database.Migrate // mockable

func (cli *commandLine) migrate() error {
	return migrateRunFunc(cli.db.DB)
}
