package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config gathers everything main needs to wire the service. Decision
// thresholds and fraud parameters live here, not in code, so tuning never
// touches decision logic.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    RedisConfig
	Kafka    Kafka
	Decision Decision
	Fraud    Fraud
	Session  Session
	Dispatch Dispatch
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
	// SigningKey signs decision notices for the signed-document channel.
	SigningKey string
}

type Postgres struct {
	DSN string
}

// RedisConfig configures the go-redis client used by the fraud signal store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Kafka struct {
	Brokers []string
	// DecisionTopic receives finalized decisions for divisional reporting.
	DecisionTopic string
}

// Decision holds the outcome thresholds. Defaults match the underwriting
// policy currently in force; override per environment.
type Decision struct {
	ApproveThreshold float64
	RejectThreshold  float64
	ConditionalFloor float64
}

// Fraud holds the rule parameters for the fraud engine, including the
// rolling window over which historical claim averages are considered valid.
type Fraud struct {
	VelocityWindow    time.Duration
	VelocityThreshold int
	MinDaysAfterStart int
	AmountMultiple    float64
	AverageWindow     time.Duration
}

type Session struct {
	// Timeout is the idle duration after which an unfinished session is
	// abandoned by the reaper.
	Timeout time.Duration
	// RequiredDocuments lists the document types a session must have
	// verified before it can be decided.
	RequiredDocuments []string
}

type Dispatch struct {
	Workers     int
	MaxAttempts int
	BaseDelay   time.Duration
	QueueSize   int
}

// FromEnv builds the full config from environment variables so main stays
// lean. Every value has a development default.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:       envStr("UNDERWRITE_ADDR", ":8080"),
			SigningKey: envStr("DECISION_SIGNING_KEY", "dev-signing-key-change-in-production"),
		},
		Postgres: Postgres{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:       envList("KAFKA_BROKERS"),
			DecisionTopic: envStr("KAFKA_DECISION_TOPIC", "underwriting.decisions"),
		},
		Decision: Decision{
			ApproveThreshold: envFloat("DECISION_APPROVE_THRESHOLD", 0.85),
			RejectThreshold:  envFloat("DECISION_REJECT_THRESHOLD", 0.15),
			ConditionalFloor: envFloat("DECISION_CONDITIONAL_FLOOR", 0.5),
		},
		Fraud: Fraud{
			VelocityWindow:    envDuration("FRAUD_VELOCITY_WINDOW", 24*time.Hour),
			VelocityThreshold: envInt("FRAUD_VELOCITY_THRESHOLD", 2),
			MinDaysAfterStart: envInt("FRAUD_MIN_DAYS_AFTER_START", 14),
			AmountMultiple:    envFloat("FRAUD_AMOUNT_MULTIPLE", 3.0),
			AverageWindow:     envDuration("FRAUD_AVERAGE_WINDOW", 90*24*time.Hour),
		},
		Session: Session{
			Timeout:           envDuration("SESSION_TIMEOUT", 48*time.Hour),
			RequiredDocuments: envListDefault("REQUIRED_DOCUMENTS", []string{"passport"}),
		},
		Dispatch: Dispatch{
			Workers:     envInt("DISPATCH_WORKERS", 4),
			MaxAttempts: envInt("DISPATCH_MAX_ATTEMPTS", 3),
			BaseDelay:   envDuration("DISPATCH_BASE_DELAY", 500*time.Millisecond),
			QueueSize:   envInt("DISPATCH_QUEUE_SIZE", 256),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envListDefault(key string, fallback []string) []string {
	if out := envList(key); len(out) > 0 {
		return out
	}
	return fallback
}
