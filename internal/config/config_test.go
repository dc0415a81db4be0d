package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Business", cfg.DataDir)
	assert.Equal(t, 20*time.Second, cfg.Kitchen.PrepMin)
	assert.Equal(t, 60*time.Second, cfg.Kitchen.PrepMax)
	assert.Equal(t, time.Minute, cfg.Couriers.TimeUnit)
	assert.Equal(t, time.Second, cfg.Orders.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Snapshots.Interval)
	assert.Equal(t, 200, cfg.DeliveryZones["SO15"])
	assert.Equal(t, "notifications_fanout", cfg.RabbitMQ.Exchange)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /tmp/sushi
kitchen:
  preparers: 3
  prep_min: 1s
  prep_max: 2s
couriers:
  count: 2
  speed: 5
  time_unit: 100ms
delivery_zones:
  SO14: 10
database:
  enabled: true
  host: db
  user: sushi
  database: sushi
`), 0o644))

	t.Setenv("SUSHI_KITCHEN_PREP_MAX", "3s")
	t.Setenv("SUSHI_DATABASE_HOST", "db.internal")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/sushi", cfg.DataDir)
	assert.Equal(t, 3, cfg.Kitchen.Preparers)
	assert.Equal(t, time.Second, cfg.Kitchen.PrepMin)
	assert.Equal(t, 3*time.Second, cfg.Kitchen.PrepMax)
	assert.Equal(t, 2, cfg.Couriers.Count)
	assert.Equal(t, 100*time.Millisecond, cfg.Couriers.TimeUnit)
	assert.Equal(t, 10, cfg.DeliveryZones["SO14"])
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "sushi", cfg.Database.Name)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kitchen:\n  prep_min: 10s\n  prep_max: 1s\ncouriers:\n  speed: 0\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prep_min")
	assert.Contains(t, err.Error(), "speed")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestFindConfigPrefersEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: x\n"), 0o644))
	t.Setenv("SUSHI_CONFIG", path)

	assert.Equal(t, path, FindConfig())
}
