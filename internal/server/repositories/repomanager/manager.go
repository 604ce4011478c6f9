package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophrelief/internal/server/repositories/records"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Records(db *sql.DB) records.Repository
}
