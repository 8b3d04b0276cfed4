package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	DefaultPath = "./config/local.yaml"

	DriverFile     = "file"
	DriverPostgres = "postgres"
)

type Config struct {
	Env      string   `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTP     `yaml:"http"`
	Log      Log      `yaml:"log"`
	Storage  Storage  `yaml:"storage"`
	SMTP     SMTP     `yaml:"smtp"`
	Checkout Checkout `yaml:"checkout"`
	Admin    Admin    `yaml:"admin"`
	Client   Client   `yaml:"client"`
}

// HTTP.BodyLimit is generous because product images arrive inline.
type HTTP struct {
	Port            string        `yaml:"port" env:"HTTP_PORT" env-default:":5000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"15s"`
	BodyLimit       int64         `yaml:"body_limit" env:"HTTP_BODY_LIMIT" env-default:"52428800"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
}

// Log.JSON switches from the console writer to plain JSON lines.
type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	JSON  bool   `yaml:"json" env:"LOG_JSON"`
}

type Storage struct {
	Driver      string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"file"`
	Dir         string `yaml:"dir" env:"STORAGE_DIR" env-default:"./data"`
	PostgresURL string `yaml:"postgres_url" env:"DB_URL"`
	MaxConns    int32  `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"10"`
}

type SMTP struct {
	Host      string `yaml:"host" env:"SMTP_HOST" env-default:"smtp.gmail.com"`
	Port      int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	StoreName string `yaml:"store_name" env:"STORE_NAME" env-default:"GamerGear"`
	QueueSize int    `yaml:"queue_size" env:"NOTIFY_QUEUE_SIZE" env-default:"64"`
}

type Checkout struct {
	DeliveryFee float64 `yaml:"delivery_fee" env:"DELIVERY_FEE" env-default:"9"`
}

// Admin is seeded into an empty users collection at startup.
type Admin struct {
	Email    string `yaml:"email" env:"ADMIN_EMAIL" env-default:"admin@gamergear.com"`
	Password string `yaml:"password" env:"ADMIN_PASSWORD" env-default:"admin@gamergear.com"`
	Name     string `yaml:"name" env:"ADMIN_NAME" env-default:"Admin"`
}

type Client struct {
	BaseURL        string        `yaml:"base_url" env:"STOREFRONT_URL" env-default:"http://localhost:5000/api"`
	PollInterval   time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL" env-default:"5s"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"10s"`
	CartPath       string        `yaml:"cart_path" env:"CART_PATH" env-default:"./data/cart.json"`
	UserID         string        `yaml:"user_id" env:"WATCH_USER_ID"`
}

// Load reads .env if present, then the YAML file named by CONFIG_PATH
// (DefaultPath when unset). Without the file only the environment and
// defaults apply.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	var cfg Config

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("error reading config %s: %w", path, err)
		}
	case errors.Is(statErr, fs.ErrNotExist):
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("error reading config from env: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to stat config %s: %w", path, statErr)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverFile:
		if c.Storage.Dir == "" {
			return errors.New("config: storage.dir is required for the file driver")
		}
	case DriverPostgres:
		if c.Storage.PostgresURL == "" {
			return errors.New("config: storage.postgres_url (DB_URL) is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}

	if c.Checkout.DeliveryFee < 0 {
		return errors.New("config: checkout.delivery_fee cannot be negative")
	}
	return nil
}
