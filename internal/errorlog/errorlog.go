package errorlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Report is a durable record of a server-side failure.
type Report struct {
	ID        int64          `json:"id"`
	Message   string         `json:"message"`
	Route     string         `json:"route"`
	Stack     string         `json:"stack"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Stacktrace returns the calling goroutine's stack.
func Stacktrace() string {
	return string(debug.Stack())
}

type stackError struct {
	err   error
	stack string
}

func (e *stackError) Error() string { return e.err.Error() }
func (e *stackError) Unwrap() error { return e.err }

// WithStack attaches the caller's stack to err. An error that already
// carries a stack is returned unchanged.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	var se *stackError
	if errors.As(err, &se) {
		return err
	}
	return &stackError{err: err, stack: Stacktrace()}
}

// StackOf returns the stack attached by WithStack, or the caller's stack
// when err carries none.
func StackOf(err error) string {
	var se *stackError
	if errors.As(err, &se) {
		return se.stack
	}
	return Stacktrace()
}

// Writer appends error reports to the error_reports table.
type Writer struct {
	pool *pgxpool.Pool
}

func NewWriter(pool *pgxpool.Pool) *Writer {
	return &Writer{pool: pool}
}

// Record stores a report outside any ingestion transaction so it survives a
// rollback.
func (w *Writer) Record(ctx context.Context, report Report) error {
	metaJSON := []byte("{}")
	if report.Meta != nil {
		b, err := json.Marshal(report.Meta)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal error report meta")
			return err
		}
		metaJSON = b
	}

	query := `
		INSERT INTO error_reports (message, route, stack, meta)
		VALUES ($1, $2, $3, $4)
	`

	_, err := w.pool.Exec(ctx, query, report.Message, report.Route, report.Stack, metaJSON)
	if err != nil {
		log.Error().Err(err).Str("route", report.Route).Msg("Failed to write error report")
		return err
	}

	log.Warn().
		Str("route", report.Route).
		Str("message", report.Message).
		Msg("Error report recorded")

	return nil
}

// Reader lists stored error reports.
type Reader struct {
	pool *pgxpool.Pool
}

func NewReader(pool *pgxpool.Pool) *Reader {
	return &Reader{pool: pool}
}

// ListRecent returns the newest reports first.
func (r *Reader) ListRecent(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, message, route, stack, meta, created_at
		FROM error_reports
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query error reports: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Report, error) {
		var rep Report
		var metaRaw []byte
		if err := row.Scan(&rep.ID, &rep.Message, &rep.Route, &rep.Stack, &metaRaw, &rep.CreatedAt); err != nil {
			return Report{}, err
		}
		if len(metaRaw) > 0 {
			if err := json.Unmarshal(metaRaw, &rep.Meta); err != nil {
				return Report{}, fmt.Errorf("failed to decode error report meta: %w", err)
			}
		}
		return rep, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan error reports: %w", err)
	}

	return out, nil
}
