package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment override, e.g. SUSHI_KITCHEN_PREP_MIN.
// Leaf fields carry no envconfig alt names so generic variables such as $USER
// never leak into the config.
const EnvPrefix = "SUSHI"

// Config holds every setting of the business engine and its CLI clients.
type Config struct {
	DataDir       string         `yaml:"data_dir" split_words:"true"`
	Log           LogConfig      `yaml:"log"`
	Kitchen       KitchenConfig  `yaml:"kitchen"`
	Couriers      CourierConfig  `yaml:"couriers"`
	Orders        OrdersConfig   `yaml:"orders"`
	Snapshots     SnapshotConfig `yaml:"snapshots"`
	DeliveryZones map[string]int `yaml:"delivery_zones" split_words:"true"`
	Password      PasswordConfig `yaml:"password"`
	Database      DatabaseConfig `yaml:"database"`
	RabbitMQ      RabbitMQConfig `yaml:"rabbitmq"`
	Metrics       MetricsConfig  `yaml:"metrics"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// KitchenConfig configures preparers. Preparers is how many start with the engine.
type KitchenConfig struct {
	Preparers int           `yaml:"preparers"`
	PrepMin   time.Duration `yaml:"prep_min" split_words:"true"`
	PrepMax   time.Duration `yaml:"prep_max" split_words:"true"`
	IdlePoll  time.Duration `yaml:"idle_poll" split_words:"true"`
}

// CourierConfig configures couriers; Count of them start with the engine.
// A trip of distance d takes d/Speed time units.
type CourierConfig struct {
	Count    int           `yaml:"count"`
	Speed    int           `yaml:"speed"`
	TimeUnit time.Duration `yaml:"time_unit" split_words:"true"`
	IdlePoll time.Duration `yaml:"idle_poll" split_words:"true"`
}

type OrdersConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" split_words:"true"`
}

type SnapshotConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `yaml:"argon_memory_kb" split_words:"true"`
	ArgonTime        int `yaml:"argon_time" split_words:"true"`
	ArgonParallelism int `yaml:"argon_parallelism" split_words:"true"`
	ArgonSaltLen     int `yaml:"argon_salt_len" split_words:"true"`
	ArgonKeyLen      int `yaml:"argon_key_len" split_words:"true"`
}

// DatabaseConfig points at the Postgres status audit log. Disabled unless Enabled.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// RabbitMQConfig points at the broker that carries status notifications.
type RabbitMQConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
	UseTLS   bool   `yaml:"use_tls" split_words:"true"`
	Exchange string `yaml:"exchange"`
	Queue    string `yaml:"queue"`
}

// MetricsConfig: when Textfile is set the snapshot saver also writes the
// Prometheus registry there in text exposition format.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Default returns the configuration the engine runs with when nothing is set.
func Default() Config {
	return Config{
		DataDir: "Business",
		Log:     LogConfig{Level: "info", Format: "json"},
		Kitchen: KitchenConfig{
			Preparers: 2,
			PrepMin:   20 * time.Second,
			PrepMax:   60 * time.Second,
			IdlePoll:  time.Second,
		},
		Couriers: CourierConfig{
			Count:    2,
			Speed:    10,
			TimeUnit: time.Minute,
			IdlePoll: time.Second,
		},
		Orders:    OrdersConfig{PollInterval: time.Second},
		Snapshots: SnapshotConfig{Interval: 5 * time.Second},
		DeliveryZones: map[string]int{
			"SO14": 50,
			"SO15": 200,
			"SO16": 150,
			"SO17": 120,
			"SO19": 70,
		},
		Password: PasswordConfig{
			ArgonMemoryKB:    64 * 1024,
			ArgonTime:        3,
			ArgonParallelism: 2,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
		Database: DatabaseConfig{Host: "localhost", Port: 5432, SSLMode: "disable"},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			VHost:    "/",
			Exchange: "notifications_fanout",
			Queue:    "notifications_queue",
		},
	}
}

// Load layers defaults, the YAML file at path (skipped when path is empty) and
// SUSHI_* environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindConfig returns the first existing candidate: $SUSHI_CONFIG, then
// config.yaml / config.yml in the working directory and ./configs.
func FindConfig() string {
	candidates := []string{os.Getenv(EnvPrefix + "_CONFIG")}
	for _, dir := range []string{".", "configs"} {
		candidates = append(candidates, filepath.Join(dir, "config.yaml"), filepath.Join(dir, "config.yml"))
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if c.Kitchen.PrepMin <= 0 || c.Kitchen.PrepMax < c.Kitchen.PrepMin {
		errs = append(errs, fmt.Errorf("kitchen: need 0 < prep_min <= prep_max, got %s..%s", c.Kitchen.PrepMin, c.Kitchen.PrepMax))
	}
	if c.Kitchen.Preparers < 0 || c.Couriers.Count < 0 {
		errs = append(errs, errors.New("worker counts must not be negative"))
	}
	if c.Couriers.Speed <= 0 {
		errs = append(errs, errors.New("couriers.speed must be positive"))
	}
	if c.Couriers.TimeUnit <= 0 {
		errs = append(errs, errors.New("couriers.time_unit must be positive"))
	}
	if c.Orders.PollInterval <= 0 || c.Snapshots.Interval <= 0 {
		errs = append(errs, errors.New("orders.poll_interval and snapshots.interval must be positive"))
	}
	for zone, distance := range c.DeliveryZones {
		if distance < 0 {
			errs = append(errs, fmt.Errorf("delivery zone %s: negative distance", zone))
		}
	}
	if c.Database.Enabled && (c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "") {
		errs = append(errs, errors.New("database config incomplete"))
	}
	if c.RabbitMQ.Enabled && (c.RabbitMQ.Host == "" || c.RabbitMQ.User == "") {
		errs = append(errs, errors.New("rabbitmq config incomplete"))
	}
	return errors.Join(errs...)
}
