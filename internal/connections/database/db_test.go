package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sushi-system/internal/config"
)

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "db", Port: 5433, User: "sushi", Password: "pw", Name: "audit"}
	assert.Equal(t, "host=db port=5433 user=sushi password=pw dbname=audit sslmode=disable", DSN(cfg))

	cfg.SSLMode = "require"
	assert.Contains(t, DSN(cfg), "sslmode=require")
}
