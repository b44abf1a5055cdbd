package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/platform/logger"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/platform/retry"
)

type StorageConfig struct {
	Backend        string // memory | postgres
	DatabaseURL    string
	SeedFile       string // optional JSON fixture applied at start
	MaxConns       int32
	MigrateOnStart bool
}

type MirrorConfig struct {
	Backend    string // memory | sqlite
	SQLitePath string
}

type SyncQueueConfig struct {
	Backend       string // memory | redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
	RetryInterval time.Duration
}

type SMTPConfig struct {
	Host      string
	Port      string
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

type NotifyConfig struct {
	Queue      string // memory | nsq
	NSQDAddr   string
	Topic      string
	Channel    string
	Workers    int
	BufferSize int

	Sender string // log | smtp
	SMTP   SMTPConfig

	// Location and DateLayout localize the trip date shown to recipients.
	Location   *time.Location
	DateLayout string
}

type SettlementConfig struct {
	// ServiceFee is the platform fee per seat, in credits.
	ServiceFee  int64
	LockWait    time.Duration
	StepTimeout time.Duration
	Retry       retry.Config
}

// Config is the process configuration, read from the environment (and .env when present).
type Config struct {
	Port          string
	SubjectHeader string

	Storage    StorageConfig
	Mirror     MirrorConfig
	SyncQueue  SyncQueueConfig
	Notify     NotifyConfig
	Settlement SettlementConfig
	Log        logger.Config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("SUBJECT_HEADER", "X-Subject")

	v.SetDefault("STORAGE_BACKEND", "memory")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIGRATE_ON_START", true)
	v.SetDefault("SEED_FILE", "")

	v.SetDefault("MIRROR_BACKEND", "memory")
	v.SetDefault("MIRROR_SQLITE_PATH", "data/mirror.db")

	v.SetDefault("SYNC_QUEUE_BACKEND", "memory")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_SYNC_KEY", "seatshare:mirror:pending")
	v.SetDefault("SYNC_RETRY_INTERVAL", "30s")

	v.SetDefault("NOTIFY_QUEUE", "memory")
	v.SetDefault("NSQD_ADDR", "localhost:4150")
	v.SetDefault("NSQ_TOPIC", "trip_cancellation_notices")
	v.SetDefault("NSQ_CHANNEL", "mailer")
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_BUFFER", 256)
	v.SetDefault("NOTIFY_SENDER", "log")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM_EMAIL", "")
	v.SetDefault("SMTP_FROM_NAME", "Seatshare")
	v.SetDefault("NOTIFY_TIMEZONE", "UTC")
	v.SetDefault("NOTIFY_DATE_LAYOUT", "Mon 2 Jan 2006")

	v.SetDefault("SERVICE_FEE_CREDITS", 2)
	v.SetDefault("SETTLEMENT_LOCK_WAIT", "2s")
	v.SetDefault("SETTLEMENT_STEP_TIMEOUT", "5s")
	v.SetDefault("SETTLEMENT_MAX_RETRIES", 4)
	v.SetDefault("SETTLEMENT_RETRY_BASE_DELAY", "20ms")
	v.SetDefault("SETTLEMENT_RETRY_MAX_DELAY", "500ms")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Load reads configuration. A missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:          v.GetString("PORT"),
		SubjectHeader: v.GetString("SUBJECT_HEADER"),
		Storage: StorageConfig{
			Backend:        v.GetString("STORAGE_BACKEND"),
			DatabaseURL:    v.GetString("DATABASE_URL"),
			SeedFile:       v.GetString("SEED_FILE"),
			MaxConns:       v.GetInt32("DB_MAX_CONNS"),
			MigrateOnStart: v.GetBool("DB_MIGRATE_ON_START"),
		},
		Mirror: MirrorConfig{
			Backend:    v.GetString("MIRROR_BACKEND"),
			SQLitePath: v.GetString("MIRROR_SQLITE_PATH"),
		},
		SyncQueue: SyncQueueConfig{
			Backend:       v.GetString("SYNC_QUEUE_BACKEND"),
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			RedisKey:      v.GetString("REDIS_SYNC_KEY"),
			RetryInterval: v.GetDuration("SYNC_RETRY_INTERVAL"),
		},
		Notify: NotifyConfig{
			Queue:      v.GetString("NOTIFY_QUEUE"),
			NSQDAddr:   v.GetString("NSQD_ADDR"),
			Topic:      v.GetString("NSQ_TOPIC"),
			Channel:    v.GetString("NSQ_CHANNEL"),
			Workers:    v.GetInt("NOTIFY_WORKERS"),
			BufferSize: v.GetInt("NOTIFY_BUFFER"),
			Sender:     v.GetString("NOTIFY_SENDER"),
			SMTP: SMTPConfig{
				Host:      v.GetString("SMTP_HOST"),
				Port:      v.GetString("SMTP_PORT"),
				Username:  v.GetString("SMTP_USERNAME"),
				Password:  v.GetString("SMTP_PASSWORD"),
				FromEmail: v.GetString("SMTP_FROM_EMAIL"),
				FromName:  v.GetString("SMTP_FROM_NAME"),
			},
			DateLayout: v.GetString("NOTIFY_DATE_LAYOUT"),
		},
		Settlement: SettlementConfig{
			ServiceFee:  v.GetInt64("SERVICE_FEE_CREDITS"),
			LockWait:    v.GetDuration("SETTLEMENT_LOCK_WAIT"),
			StepTimeout: v.GetDuration("SETTLEMENT_STEP_TIMEOUT"),
			Retry: retry.Config{
				MaxRetries: v.GetInt("SETTLEMENT_MAX_RETRIES"),
				BaseDelay:  v.GetDuration("SETTLEMENT_RETRY_BASE_DELAY"),
				MaxDelay:   v.GetDuration("SETTLEMENT_RETRY_MAX_DELAY"),
				Multiplier: 2.0,
				Jitter:     true,
			},
		},
		Log: logger.Config{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	loc, err := time.LoadLocation(v.GetString("NOTIFY_TIMEZONE"))
	if err != nil {
		return Config{}, fmt.Errorf("NOTIFY_TIMEZONE must be an IANA zone name: %w", err)
	}
	cfg.Notify.Location = loc

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the process cannot run with.
func (c Config) Validate() error {
	if c.Settlement.ServiceFee < 0 {
		return fmt.Errorf("SERVICE_FEE_CREDITS must be >= 0, got %d", c.Settlement.ServiceFee)
	}
	if c.Settlement.StepTimeout <= 0 {
		return fmt.Errorf("SETTLEMENT_STEP_TIMEOUT must be positive")
	}
	if c.Settlement.Retry.MaxRetries < 0 {
		return fmt.Errorf("SETTLEMENT_MAX_RETRIES must be >= 0")
	}
	if err := oneOf("STORAGE_BACKEND", c.Storage.Backend, "memory", "postgres"); err != nil {
		return err
	}
	if c.Storage.Backend == "postgres" && c.Storage.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
	}
	if err := oneOf("MIRROR_BACKEND", c.Mirror.Backend, "memory", "sqlite"); err != nil {
		return err
	}
	if err := oneOf("SYNC_QUEUE_BACKEND", c.SyncQueue.Backend, "memory", "redis"); err != nil {
		return err
	}
	if err := oneOf("NOTIFY_QUEUE", c.Notify.Queue, "memory", "nsq"); err != nil {
		return err
	}
	if err := oneOf("NOTIFY_SENDER", c.Notify.Sender, "log", "smtp"); err != nil {
		return err
	}
	if c.Notify.Sender == "smtp" && c.Notify.SMTP.Host == "" {
		return fmt.Errorf("SMTP_HOST is required when NOTIFY_SENDER=smtp")
	}
	return nil
}

func oneOf(name, got string, allowed ...string) error {
	for _, a := range allowed {
		if got == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %v, got %q", name, allowed, got)
}
