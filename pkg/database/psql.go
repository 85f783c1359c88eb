package database

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
)

// NewDatabaseConnection create a new postgresSQL connection
func NewDatabaseConnection(d Connection) (*pgxpool.Pool, error) {
	dbConfig, _ := pgxpool.ParseConfig(d.ConnectStr)
	return dialWithRetry(d, "postgreSQL database", func() (*pgxpool.Pool, error) {
		return pgxpool.ConnectConfig(context.Background(), dbConfig)
	})
}
