package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Checker is a dependency that /ready reports on.
type Checker interface {
	// Type returns the dependency kind, e.g. "postgres"
	Type() string

	// HealthCheck returns nil when the dependency is usable
	HealthCheck(ctx context.Context) error
}

// PostgresChecker pings PostgreSQL over a database/sql connection separate
// from the application pool, so a saturated pool still reports correctly.
type PostgresChecker struct {
	db *sql.DB
}

// NewPostgresChecker opens a small database/sql handle on dsn.
func NewPostgresChecker(dsn string) (*PostgresChecker, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(time.Minute)
	return &PostgresChecker{db: db}, nil
}

func (p *PostgresChecker) Type() string { return "postgres" }

// HealthCheck verifies PostgreSQL connectivity
func (p *PostgresChecker) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close releases the handle
func (p *PostgresChecker) Close() error {
	return p.db.Close()
}

// RedisChecker pings the shared Redis client.
type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

func (r *RedisChecker) Type() string { return "redis" }

// HealthCheck verifies Redis connectivity
func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// PingFunc adapts a ping function, such as a repository's Ping, to a Checker.
type PingFunc struct {
	Kind string
	Ping func(ctx context.Context) error
}

func (f PingFunc) Type() string { return f.Kind }

func (f PingFunc) HealthCheck(ctx context.Context) error { return f.Ping(ctx) }

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, address, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
