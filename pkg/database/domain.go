package database

import (
	"fmt"
	"time"

	"realtime_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// Connection definition sql setting
type Connection struct {
	ConnectStr string

	RetryCount    int
	RetryInterval time.Duration
}

// MinIOConnection definition minio
type MinIOConnection struct {
	Endpoint   string
	User       string
	Password   string
	BucketName string
	UseSSL     bool

	RetryCount    int
	RetryInterval time.Duration
}

// dialWithRetry run dial until it succeeds or the retry budget is
// spent, sleeping RetryInterval seconds between attempts
func dialWithRetry[T any](d Connection, kind string, dial func() (T, error)) (T, error) {
	var conn T
	var err error

	for i := 0; i < d.RetryCount; i++ {
		conn, err = dial()
		if err == nil {
			break
		}
		logger.Log.Warn(
			"Failed to connect to "+kind+", retrying...",
			zap.Int("attempt", i+1),
			zap.String("address", fmt.Sprintf("[%s]", d.ConnectStr)),
			zap.Error(err),
		)
		time.Sleep(d.RetryInterval * time.Second)
	}
	return conn, err
}
