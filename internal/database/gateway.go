package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultAttempts = 3
	DefaultTimeout  = 5 * time.Second
)

// Conn is the pooled handle the gateway owns. *sql.DB satisfies it.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PingContext(ctx context.Context) error
	Close() error
}

type Opener func(ctx context.Context) (Conn, error)

// Gateway executes statements against a lazily opened handle. A failed
// attempt discards the handle so the next attempt opens a fresh one.
// Concurrent callers that find no handle share a single open.
type Gateway struct {
	open     Opener
	dialect  Dialect
	attempts int
	timeout  time.Duration

	mu    sync.RWMutex
	conn  Conn
	group singleflight.Group
}

func NewGateway(open Opener, dialect Dialect, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{
		open:     open,
		dialect:  dialect,
		attempts: DefaultAttempts,
		timeout:  timeout,
	}
}

func (g *Gateway) Dialect() Dialect {
	return g.dialect
}

func (g *Gateway) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := g.do(ctx, func(ctx context.Context, c Conn) error {
		r, err := c.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	return res, err
}

// Query runs query and hands the open rows to scan. scan runs once per
// attempt, so it must reset whatever it accumulates. An error returned by
// scan is about the data, not the connection: it is returned as is, without
// another attempt and without discarding the handle.
func (g *Gateway) Query(ctx context.Context, query string, scan func(*sql.Rows) error, args ...any) error {
	err := g.do(ctx, func(ctx context.Context, c Conn) error {
		rows, err := c.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		if err := scan(rows); err != nil {
			return &scanError{err: err}
		}
		return rows.Err()
	})

	var se *scanError
	if errors.As(err, &se) {
		return se.err
	}
	return err
}

func (g *Gateway) Close() error {
	g.mu.Lock()
	c := g.conn
	g.conn = nil
	g.mu.Unlock()

	if c == nil {
		return nil
	}
	return c.Close()
}

func (g *Gateway) do(ctx context.Context, op func(context.Context, Conn) error) error {
	var lastErr error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		lastErr = g.attempt(ctx, op)
		if lastErr == nil {
			return nil
		}
		if isConflict(lastErr) {
			return fmt.Errorf("%w: %v", ErrConflict, lastErr)
		}
		if isPermanent(lastErr) {
			return lastErr
		}
		slog.Warn("database attempt failed", "attempt", attempt, "of", g.attempts, "error", lastErr)
	}

	slog.Info(lastErr.Error())
	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (g *Gateway) attempt(ctx context.Context, op func(context.Context, Conn) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	c, err := g.acquire(ctx)
	if err != nil {
		return err
	}

	if err := op(ctx, c); err != nil {
		if !isConflict(err) && !isPermanent(err) {
			g.discard(c)
		}
		return err
	}
	return nil
}

func (g *Gateway) acquire(ctx context.Context) (Conn, error) {
	g.mu.RLock()
	c := g.conn
	g.mu.RUnlock()

	if c == nil {
		v, err, _ := g.group.Do("conn", func() (any, error) {
			g.mu.RLock()
			existing := g.conn
			g.mu.RUnlock()
			if existing != nil {
				return existing, nil
			}

			opened, err := g.open(ctx)
			if err != nil {
				return nil, fmt.Errorf("open database: %w", err)
			}

			g.mu.Lock()
			g.conn = opened
			g.mu.Unlock()
			return opened, nil
		})
		if err != nil {
			return nil, err
		}
		c = v.(Conn)
	}

	if err := c.PingContext(ctx); err != nil {
		g.discard(c)
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return c, nil
}

// discard drops c if it is still the current handle. A handle already
// replaced by another caller is left to whoever replaced it.
func (g *Gateway) discard(c Conn) {
	g.mu.Lock()
	current := g.conn == c
	if current {
		g.conn = nil
	}
	g.mu.Unlock()

	if current {
		if err := c.Close(); err != nil {
			slog.Info(err.Error())
		}
	}
}
