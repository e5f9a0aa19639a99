package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

type sample struct {
	ID   int64
	Name string
}

func TestOpen_SQLite(t *testing.T) {
	db, err := Open("sqlite", ":memory:", Options{MaxOpenConns: 1, LogLevel: logger.Silent}, &sample{})
	require.NoError(t, err)

	require.NoError(t, db.Create(&sample{Name: "a"}).Error)
	var count int64
	db.Model(&sample{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("mysql", "x", Options{})
	assert.Error(t, err)
}
