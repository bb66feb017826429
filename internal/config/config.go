package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Загрузка конфигурации: .env (опционально) -> config.yaml через cleanenv -> env

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logger    LoggerConfig    `yaml:"logger"`
	Storage   StorageConfig   `yaml:"storage"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Feed      FeedConfig      `yaml:"feed"`
	Render    RenderConfig    `yaml:"render"`
	Chart     ChartConfig     `yaml:"chart"`
	Template  TemplateConfig  `yaml:"template"`
	History   HistoryConfig   `yaml:"history"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Targets   []TargetConfig  `yaml:"targets"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"SERVER_ADDR" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

type SchedulerConfig struct {
	Enabled  bool          `yaml:"enabled" env:"SCHEDULER_ENABLED" env-default:"true"`
	Interval time.Duration `yaml:"interval" env:"SCHEDULER_INTERVAL" env-default:"5m"`
	// RunOnStart - запустить цикл сразу, не дожидаясь первого тика
	RunOnStart bool `yaml:"run_on_start" env-default:"true"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL" env-default:"info"` // debug|info|warn|error
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"` // text|json
}

// StorageConfig selects the history backend.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"file"` // file|postgres|redis
	Dir    string `yaml:"dir" env:"STORAGE_DIR" env-default:"data"`
}

type PostgresConfig struct {
	Host            string        `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port            int           `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User            string        `yaml:"user" env:"POSTGRES_USER" env-default:"postgres"`
	Password        string        `yaml:"password" env:"POSTGRES_PASSWORD" env-default:"postgres"`
	DBName          string        `yaml:"dbname" env:"POSTGRES_DB" env-default:"silver"`
	SSLMode         string        `yaml:"sslmode" env-default:"disable"`
	Timeout         time.Duration `yaml:"timeout" env-default:"5s"`
	MaxConns        int32         `yaml:"max_conns" env-default:"10"`
	MinConns        int32         `yaml:"min_conns" env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env-default:"30m"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	Prefix   string        `yaml:"prefix" env-default:"price:"`
	// Channel - pub/sub канал результатов циклов; пусто - не публиковать
	Channel string `yaml:"channel" env:"REDIS_CHANNEL"`
	Timeout  time.Duration `yaml:"timeout" env-default:"5s"`
}

type FeedConfig struct {
	BaseURL        string        `yaml:"base_url" env:"FEED_BASE_URL" env-default:"https://giabac.phuquygroup.vn"`
	PricePath      string        `yaml:"price_path" env-default:"/PhuQuyPrice/SilverPricePartial"`
	UpdatePath     string        `yaml:"update_path" env-default:"/PhuQuyPrice/GetDateTimeUpdate"`
	Timeout        time.Duration `yaml:"timeout" env-default:"15s"`
	RetryCount     int           `yaml:"retry_count" env-default:"2"`
	UserAgent      string        `yaml:"user_agent" env-default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"`
	AcceptLanguage string        `yaml:"accept_language" env-default:"vi-VN,vi;q=0.9,en-US;q=0.8,en;q=0.7"`
}

// RenderConfig - remote rasterizer (browserless compatible /screenshot API).
type RenderConfig struct {
	URL       string        `yaml:"url" env:"RENDER_URL" env-default:"http://localhost:3000/screenshot"`
	Token     string        `yaml:"token" env:"RENDER_TOKEN"`
	Timeout   time.Duration `yaml:"timeout" env:"RENDER_TIMEOUT" env-default:"30s"`
	Width     int           `yaml:"width" env-default:"720"`
	Scale     float64       `yaml:"scale" env-default:"2"`
	MaxHeight int           `yaml:"max_height" env-default:"2000"`
	TempDir   string        `yaml:"temp_dir" env:"RENDER_TEMP_DIR"`
}

// ChartConfig - zero values fall back to the chart defaults.
type ChartConfig struct {
	StablePercent  float64 `yaml:"stable_percent"`
	FlatRange      float64 `yaml:"flat_range"`
	NearFlatRange  float64 `yaml:"near_flat_range"`
	FlatFactor     float64 `yaml:"flat_factor"`
	NearFlatFactor float64 `yaml:"near_flat_factor"`
	DefaultFactor  float64 `yaml:"default_factor"`
	FlatFloor      float64 `yaml:"flat_floor"`
	DefaultFloor   float64 `yaml:"default_floor"`
}

type TemplateConfig struct {
	Brand             string   `yaml:"brand" env-default:"VÀNG BẠC VINH HOA"`
	Title             string   `yaml:"title" env-default:"GIÁ BẠC HÔM NAY"`
	LogoPath          string   `yaml:"logo_path" env:"TEMPLATE_LOGO_PATH"`
	AllowedCategories []string `yaml:"allowed_categories"`
	Timezone          string   `yaml:"timezone" env:"TZ_NAME" env-default:"Asia/Ho_Chi_Minh"`
}

type HistoryConfig struct {
	MaxHistory int `yaml:"max_history" env:"HISTORY_MAX" env-default:"5"`
}

type TelegramConfig struct {
	Enabled     bool          `yaml:"enabled" env:"TELEGRAM_ENABLED" env-default:"false"`
	Token       string        `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
	PollTimeout time.Duration `yaml:"poll_timeout" env-default:"10s"`
	// AutoSession - регистрировать бота как сессию с этим ключом при старте
	AutoSession string        `yaml:"auto_session" env:"TELEGRAM_AUTO_SESSION"`
	SessionTTL  time.Duration `yaml:"session_ttl" env-default:"720h"`
	LoginTTL    time.Duration `yaml:"login_ttl" env-default:"3m"`
}

// TargetConfig - one monitored product and its destination chat.
type TargetConfig struct {
	Key              string        `yaml:"key"`
	ProductName      string        `yaml:"product_name"`
	SessionKey       string        `yaml:"session_key"`
	ThreadID         string        `yaml:"thread_id"`
	ThreadType       string        `yaml:"thread_type"` // user|group
	MinChangePercent float64       `yaml:"min_change_percent"`
	Interval         time.Duration `yaml:"interval"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	// .env не обязателен
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	configPath := fetchConfigPath()
	if configPath != "" {
		if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
			return nil, err
		}
	}

	// Read from environment variables
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "file", "postgres", "redis":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return errors.New("telegram.token is required when telegram is enabled")
	}
	seen := make(map[string]bool, len(c.Targets))
	for _, t := range c.Targets {
		if t.Key == "" {
			return errors.New("target key is required")
		}
		if seen[t.Key] {
			return fmt.Errorf("duplicate target %q", t.Key)
		}
		seen[t.Key] = true
		if t.MinChangePercent < 0 {
			return fmt.Errorf("target %q: min_change_percent must be >= 0", t.Key)
		}
	}
	return nil
}

func fetchConfigPath() string {
	var res string
	flag.StringVar(&res, "c", "", "config file path")
	flag.Parse()
	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res
}
