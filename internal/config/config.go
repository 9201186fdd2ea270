package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/BatmanBruc/arima-bot/types"
)

type Config struct {
	Env          string       `yaml:"env" env:"ENV" env-default:"local" validate:"oneof=local dev prod"`
	AdminIDsRaw  string       `yaml:"admin_ids" env:"ADMIN_IDS"`
	Timezone     string       `yaml:"timezone" env:"TIMEZONE" env-default:"UTC"`
	Telegram     Telegram     `yaml:"telegram"`
	API          API          `yaml:"api"`
	Chat         Chat         `yaml:"chat"`
	Limits       Limits       `yaml:"limits"`
	Subscription Subscription `yaml:"subscription"`
	Broadcast    Broadcast    `yaml:"broadcast"`
	Postgres     Postgres     `yaml:"postgres"`
	Redis        Redis        `yaml:"redis"`
	HTTPServer   HTTPServer   `yaml:"http_server"`

	adminIDs []int64
	location *time.Location
}

func (c *Config) AdminIDs() []int64 {
	return c.adminIDs
}

// Location is the timezone that defines a quota day.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

type Telegram struct {
	Token           string        `yaml:"token" env:"BOT_TOKEN" validate:"required"`
	PollTimeout     time.Duration `yaml:"poll_timeout" env:"BOT_POLL_TIMEOUT" env-default:"50s"`
	PaymentUsername string        `yaml:"payment_username" env:"PAYMENT_USERNAME" env-default:"xakenn"`
	SupportUsername string        `yaml:"support_username" env:"SUPPORT_USERNAME" env-default:"gevsen"`
}

type API struct {
	Key         string        `yaml:"key" env:"API_KEY"`
	URL         string        `yaml:"url" env:"API_URL" validate:"required,url"`
	ImageURL    string        `yaml:"image_url" env:"IMAGE_API_URL"`
	ImageModel  string        `yaml:"image_model" env:"IMAGE_MODEL" env-default:"gpt-image-1"`
	ImageSize   string        `yaml:"image_size" env:"IMAGE_SIZE" env-default:"1024x1024"`
	Timeout     time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"120s" validate:"gt=0"`
	TestTimeout time.Duration `yaml:"test_timeout" env:"API_TEST_TIMEOUT" env-default:"30s" validate:"gt=0"`
}

type Chat struct {
	SystemPrompt      string  `yaml:"system_prompt" env:"DEFAULT_SYSTEM_PROMPT" env-default:"You are a helpful AI assistant."`
	Temperature       float64 `yaml:"temperature" env:"DEFAULT_TEMPERATURE" env-default:"0.7" validate:"gte=0,lte=2"`
	HistoryMaxLen     int     `yaml:"history_max_len" env:"CHAT_HISTORY_MAX_LEN" env-default:"10" validate:"gte=1"`
	GroupTrigger      string  `yaml:"group_trigger" env:"GROUP_TRIGGER" env-default:".mini" validate:"required"`
	DefaultGroupModel string  `yaml:"default_group_model" env:"DEFAULT_GROUP_MODEL" env-default:"gpt-4.1" validate:"required"`
}

type Limits struct {
	Free     int `yaml:"free" env:"LIMIT_FREE" env-default:"3" validate:"gte=0"`
	Standard int `yaml:"standard" env:"LIMIT_STANDARD" env-default:"40" validate:"gte=0"`
	Premium  int `yaml:"premium" env:"LIMIT_PREMIUM" env-default:"100" validate:"gte=0"`
}

func (l Limits) ByLevel() map[types.Level]int {
	return map[types.Level]int{
		types.LevelFree:     l.Free,
		types.LevelStandard: l.Standard,
		types.LevelPremium:  l.Premium,
	}
}

type Subscription struct {
	Days int `yaml:"days" env:"SUBSCRIPTION_DAYS" env-default:"30" validate:"gte=1"`
}

func (s Subscription) Validity() time.Duration {
	return time.Duration(s.Days) * 24 * time.Hour
}

type Broadcast struct {
	Delay     time.Duration `yaml:"delay" env:"BROADCAST_DELAY" env-default:"50ms" validate:"gte=0"`
	Workers   int           `yaml:"workers" env:"BROADCAST_WORKERS" env-default:"1" validate:"gte=1"`
	AMQPURL   string        `yaml:"amqp_url" env:"AMQP_URL"`
	QueueName string        `yaml:"queue_name" env:"BROADCAST_QUEUE" env-default:"arima.broadcasts"`
}

type Postgres struct {
	DSNRaw   string `yaml:"dsn" env:"POSTGRES_DSN"`
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	DB       string `yaml:"db" env:"POSTGRES_DB" env-default:"arima_bot"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:"arima_bot"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
}

// DSN returns POSTGRES_DSN when set and otherwise assembles one from the parts.
func (p Postgres) DSN() string {
	if dsn := strings.TrimSpace(p.DSNRaw); dsn != "" {
		return dsn
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     p.Host + ":" + p.Port,
		Path:     "/" + p.DB,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

type Redis struct {
	Host            string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port            string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password        string `yaml:"password" env:"REDIS_PASSWORD"`
	DB              int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	Prefix          string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"arima_bot"`
	SessionTTLHours int    `yaml:"session_ttl_hours" env:"SESSION_TTL_HOURS" env-default:"24"`
}

func (r Redis) Addr() string {
	return r.Host + ":" + r.Port
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDR" env-default:":8080"`
	Timeout     time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// Load reads the YAML file named by CONFIG_PATH when it is set, otherwise the
// environment alone. Environment variables override file values either way.
func Load() (*Config, error) {
	var cfg Config
	var err error
	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) finalize() error {
	ids, err := ParseAdminIDs(c.AdminIDsRaw)
	if err != nil {
		return err
	}
	c.adminIDs = ids

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	c.location = loc

	if strings.TrimSpace(c.API.ImageURL) == "" {
		c.API.ImageURL = c.API.URL
	}
	return nil
}

// ParseAdminIDs accepts ids separated by commas, semicolons or whitespace.
func ParseAdminIDs(raw string) ([]int64, error) {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t'
	})
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_IDS entry %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
