package infra

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// SQLExecutor is the query surface shared by repositories and stores.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

var markerRegexp = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ErrMissingMarker is returned for statements without a leading audit marker.
var ErrMissingMarker = errors.New("sql marker missing or invalid")

// DefaultSlowStatement is the duration above which a statement is logged
// at warn level.
const DefaultSlowStatement = 500 * time.Millisecond

// SQLRunner executes marker-tagged statements against the pool and logs each
// call under its marker so slow or failing statements can be traced back to
// the constant that issued them.
type SQLRunner struct {
	Pool   *pgxpool.Pool
	Logger *Logger
	// Slow defaults to DefaultSlowStatement.
	Slow time.Duration
}

func NewSQLRunner(pool *pgxpool.Pool, logger *Logger) *SQLRunner {
	return &SQLRunner{Pool: pool, Logger: OrNop(logger), Slow: DefaultSlowStatement}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := time.Now()
	tag, err := r.Pool.Exec(ctx, trimmed, args...)
	r.done("exec", marker, start, err, tag.RowsAffected())
	return tag, err
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return errorRow{err: err}
	}
	return &timedRow{runner: r, row: r.Pool.QueryRow(ctx, trimmed, args...), marker: marker, start: time.Now()}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := r.Pool.Query(ctx, trimmed, args...)
	r.done("query", marker, start, err, -1)
	return rows, err
}

func (r *SQLRunner) done(op, marker string, start time.Time, err error, rows int64) {
	took := time.Since(start)
	var ev *zerolog.Event
	switch {
	case err != nil && !IsNoRows(err):
		ev = r.Logger.Error().Err(err)
	case r.Slow > 0 && took > r.Slow:
		ev = r.Logger.Warn()
	default:
		ev = r.Logger.Debug()
	}
	if rows >= 0 {
		ev = ev.Int64("rows", rows)
	}
	ev.Str("op", op).Str("marker", marker).Dur("took", took).Msg("sql")
}

// timedRow reports a QueryRow call once it is scanned, since pgx defers
// both the round trip and its error until then.
type timedRow struct {
	runner *SQLRunner
	row    pgx.Row
	marker string
	start  time.Time
}

func (t *timedRow) Scan(dest ...any) error {
	err := t.row.Scan(dest...)
	t.runner.done("query_row", t.marker, t.start, err, -1)
	return err
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(dest ...any) error {
	return e.err
}

// IsNoRows reports whether err signals an empty result set.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func extractMarker(query string) (string, string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", "", errors.New("empty query")
	}
	lines := strings.Split(trimmed, "\n")
	markerLine := strings.TrimSpace(lines[0])
	if !markerRegexp.MatchString(markerLine) {
		return "", "", ErrMissingMarker
	}
	return strings.TrimPrefix(markerLine, "--sql "), strings.Join(lines[1:], "\n"), nil
}

var _ SQLExecutor = (*SQLRunner)(nil)
