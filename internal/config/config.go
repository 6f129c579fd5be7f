package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/MrJamesThe3rd/conciliacao/internal/reconciliation"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Conciliacao"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"conciliacao"`
		Migrate  bool   `envconfig:"DB_MIGRATE" default:"true"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
		RunRateLimit   int           `envconfig:"RECONCILE_RUN_RATE_LIMIT" default:"10"`
	}

	Redis struct {
		// Empty disables the dashboard cache and the async ingest pass.
		Addr     string        `envconfig:"REDIS_ADDR" default:""`
		CacheTTL time.Duration `envconfig:"DASHBOARD_CACHE_TTL" default:"5m"`
	}

	Auth struct {
		JWTSecret string `envconfig:"JWT_SECRET"`
	}

	Reconciliation struct {
		IngestThreshold       float64 `envconfig:"RECONCILE_INGEST_THRESHOLD" default:"80"`
		CompleteThreshold     float64 `envconfig:"RECONCILE_COMPLETE_THRESHOLD" default:"85"`
		ReviewThreshold       float64 `envconfig:"RECONCILE_REVIEW_THRESHOLD" default:"60"`
		ConservativeThreshold float64 `envconfig:"RECONCILE_CONSERVATIVE_THRESHOLD" default:"95"`
		SuggestionThreshold   float64 `envconfig:"RECONCILE_SUGGESTION_THRESHOLD" default:"30"`
		MaxSuggestions        int     `envconfig:"RECONCILE_MAX_SUGGESTIONS" default:"3"`
		ScoringWorkers        int     `envconfig:"RECONCILE_SCORING_WORKERS" default:"4"`
		CommitRetries         int     `envconfig:"RECONCILE_COMMIT_RETRIES" default:"3"`
		Async                 bool    `envconfig:"RECONCILE_ASYNC" default:"false"`
		WorkerConcurrency     int     `envconfig:"RECONCILE_WORKER_CONCURRENCY" default:"2"`
	}

	Categories struct {
		RulesFile string `envconfig:"CATEGORY_RULES_FILE"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// Thresholds returns the score cut-offs of every reconciliation policy.
func (c *Config) Thresholds() reconciliation.Thresholds {
	r := c.Reconciliation

	return reconciliation.Thresholds{
		Ingest:         r.IngestThreshold,
		Complete:       r.CompleteThreshold,
		Review:         r.ReviewThreshold,
		Conservative:   r.ConservativeThreshold,
		Suggestion:     r.SuggestionThreshold,
		MaxSuggestions: r.MaxSuggestions,
	}
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
