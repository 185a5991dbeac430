package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

var _ pgx.QueryTracer = (*queryTracer)(nil)

type traceKey struct{}

type traceStart struct {
	sql   string
	nargs int
	at    time.Time
}

// queryTracer logs every statement pgx executes at debug level.
// Argument values are never logged, only their count.
type queryTracer struct {
	log *slog.Logger
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	if !t.log.Enabled(ctx, slog.LevelDebug) {
		return ctx
	}

	return context.WithValue(ctx, traceKey{}, traceStart{sql: data.SQL, nargs: len(data.Args), at: time.Now()})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(traceKey{}).(traceStart)
	if !ok {
		return
	}

	attrs := []slog.Attr{
		slog.String("sql", start.sql),
		slog.Int("args", start.nargs),
		slog.Int64("rows_affected", data.CommandTag.RowsAffected()),
		slog.Duration("duration", time.Since(start.at)),
	}
	if data.Err != nil {
		attrs = append(attrs, slog.String("error", data.Err.Error()))
	}

	t.log.LogAttrs(ctx, slog.LevelDebug, "query executed", attrs...)
}
