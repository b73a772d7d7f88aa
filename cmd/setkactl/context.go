package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"setka/internal/account"
	"setka/internal/adapter/repo"
	"setka/internal/infra"
)

// commandContext holds what subcommands share. The database is opened on
// first use so generate never needs DATABASE_URL.
type commandContext struct {
	verbose bool

	// newProviders builds the model registry for generate. Tests swap it.
	newProviders providerFactory

	dbOnce sync.Once
	cfg    *infra.Config
	pool   *pgxpool.Pool
	sql    *infra.SQLRunner
	dbErr  error

	logOnce sync.Once
	logger  *infra.Logger
}

func newCommandContext() *commandContext {
	return &commandContext{newProviders: defaultProviders}
}

func (c *commandContext) log() *infra.Logger {
	c.logOnce.Do(func() {
		if !c.verbose {
			c.logger = infra.NopLogger()
			return
		}
		l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(zerolog.DebugLevel).
			With().
			Timestamp().
			Logger()
		c.logger = &l
	})
	return c.logger
}

func (c *commandContext) ensureDB(ctx context.Context) (*infra.SQLRunner, *infra.Config, error) {
	c.dbOnce.Do(func() {
		cfg, err := infra.LoadConfig()
		if err != nil {
			c.dbErr = fmt.Errorf("load config: %w", err)
			return
		}
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			c.dbErr = err
			return
		}
		c.cfg, c.pool = cfg, pool
		c.sql = infra.NewSQLRunner(pool, c.log())
	})
	return c.sql, c.cfg, c.dbErr
}

func (c *commandContext) accounts(ctx context.Context) (*account.Service, *repo.UserRepo, error) {
	sql, _, err := c.ensureDB(ctx)
	if err != nil {
		return nil, nil, err
	}
	users := repo.NewUserRepo(sql)
	return account.NewService(users, repo.NewPromoRepo(sql), c.log()), users, nil
}

func (c *commandContext) close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

func printf(out io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(out, format, args...)
}
