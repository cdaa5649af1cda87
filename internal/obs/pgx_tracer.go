package obs

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type pgxQueryKey struct{}

type pgxQuery struct {
	span      trace.Span
	operation string
	start     time.Time
}

// PGXTracer implements pgx.QueryTracer. Every statement gets a client span
// named after its sqlc query (or leading verb), and its latency is observed when Duration is set.
type PGXTracer struct {
	Duration *prometheus.HistogramVec
}

// TraceQueryStart starts a span for the SQL statement.
func (t PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	op := sqlOperation(data.SQL)
	ctx, span := otel.Tracer("db.pgx").Start(ctx, "pg "+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", op),
		attribute.String("db.statement", truncateSQL(data.SQL)),
	)
	return context.WithValue(ctx, pgxQueryKey{}, pgxQuery{span: span, operation: op, start: time.Now()})
}

// TraceQueryEnd ends the span, records any error and observes the latency.
func (t PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	q, ok := ctx.Value(pgxQueryKey{}).(pgxQuery)
	if !ok {
		return
	}
	status := "ok"
	if data.Err != nil {
		status = "error"
		q.span.RecordError(data.Err)
		q.span.SetStatus(codes.Error, data.Err.Error())
	} else {
		q.span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
	}
	q.span.End()
	if t.Duration != nil {
		t.Duration.WithLabelValues(q.operation, status).Observe(DurationMillis(time.Since(q.start)))
	}
}

// sqlOperation names a statement by its sqlc query name when present, else by
// its leading verb.
func sqlOperation(sql string) string {
	for _, line := range strings.Split(sql, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "-- name:"); ok {
			if fields := strings.Fields(rest); len(fields) > 0 {
				return fields[0]
			}
			continue
		}
		if strings.HasPrefix(line, "--") {
			continue
		}
		return strings.ToUpper(strings.Fields(line)[0])
	}
	return "UNKNOWN"
}

func truncateSQL(sql string) string {
	trimmed := strings.TrimSpace(sql)
	if len(trimmed) > 300 {
		return trimmed[:300] + "..."
	}
	return trimmed
}
