package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewGormConnection create a new gorm postgres connection with retry
func NewGormConnection(d Connection) (*gorm.DB, error) {
	return dialWithRetry(d, "postgreSQL database via gorm", func() (*gorm.DB, error) {
		return gorm.Open(postgres.Open(d.ConnectStr), &gorm.Config{})
	})
}
