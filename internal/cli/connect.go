package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"team-event-service/internal/config"
	"team-event-service/internal/infra/postgres"
)

// connectTimeout bounds how long startup waits for backing services.
const connectTimeout = 30 * time.Second

// postgresConns bundles the bun handle used by the store and the pgx pool
// used by the question bank.
type postgresConns struct {
	db        *bun.DB
	pool      *pgxpool.Pool
	store     *postgres.Store
	questions *postgres.QuestionBank
}

func (c *postgresConns) Close() {
	c.pool.Close()
	if err := c.db.Close(); err != nil {
		log.Printf("close postgres: %v", err)
	}
}

func openBunDB(url string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(url)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func connectPostgres(ctx context.Context, url string) (*postgresConns, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	poolCfg.LazyConnect = true
	pool, err := pgxpool.ConnectConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	db := openBunDB(url)
	questions := postgres.NewQuestionBank(pool)
	conns := &postgresConns{
		db:        db,
		pool:      pool,
		store:     postgres.NewStore(db, questions),
		questions: questions,
	}
	err = retry(ctx, "postgres", func() error {
		if err := conns.store.Ping(ctx); err != nil {
			return err
		}
		return questions.Ping(ctx)
	})
	if err != nil {
		conns.Close()
		return nil, err
	}
	return conns, nil
}

func connectRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := retry(ctx, "redis", func() error { return client.Ping(ctx).Err() }); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// retry runs op with exponential backoff until it succeeds, ctx ends or
// connectTimeout elapses.
func retry(ctx context.Context, name string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = connectTimeout
	notify := func(err error, wait time.Duration) {
		log.Printf("%s not ready, retrying in %s: %v", name, wait.Round(time.Millisecond), err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("connect %s: %w", name, err)
	}
	return nil
}
