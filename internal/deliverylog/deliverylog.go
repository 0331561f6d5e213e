// Package deliverylog keeps an audit trail of template sends: which
// template went to how many recipients, through which gateway profile, and
// how Mandrill classified the result.
package deliverylog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/mandrill-gateway/internal/config"
)

// Entry is one recorded send.
type Entry struct {
	ID          uuid.UUID `json:"id"`
	Gateway     string    `json:"gateway"`
	Environment string    `json:"environment"`
	EndpointID  string    `json:"endpoint_id"`
	Action      string    `json:"action"`
	Slug        string    `json:"slug"`
	Subject     string    `json:"subject"`
	Recipients  int       `json:"recipients"`
	Successful  bool      `json:"successful"`
	ReferenceID string    `json:"reference_id,omitempty"`
	Message     string    `json:"message,omitempty"`
	Error       string    `json:"error,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

// Recorder persists entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Lister returns the most recent entries, newest first.
type Lister interface {
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// stamp fills the id and timestamp when the caller left them empty.
func stamp(e *Entry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.SentAt.IsZero() {
		e.SentAt = time.Now().UTC()
	}
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

// Open builds the recorder selected by cfg. The returned close function
// releases the underlying connection. The postgres driver must be
// registered by the caller.
func Open(ctx context.Context, cfg config.DeliveryLogConfig) (Recorder, func() error, error) {
	switch cfg.Type {
	case "", "none":
		return Nop{}, func() error { return nil }, nil

	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("delivery log: postgres selected but database_url is empty")
		}
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("delivery log: opening database: %w", err)
		}
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		rec := NewPostgresRecorder(db)
		if err := rec.Prepare(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return rec, db.Close, nil

	case "redis":
		if cfg.RedisAddr == "" {
			return nil, nil, fmt.Errorf("delivery log: redis selected but redis_addr is empty")
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("delivery log: connecting to redis: %w", err)
		}
		return NewRedisRecorder(client, cfg.RedisKey, cfg.MaxEntries), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("delivery log: unsupported type %q", cfg.Type)
	}
}
