package util

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pgschema/sqlschema/internal/logger"
)

// queryTracer logs every catalog query at debug level.
type queryTracer struct{}

func (*queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	logger.Get().Debug("Executing SQL", "sql", data.SQL, "args", len(data.Args))
	return ctx
}

func (*queryTracer) TraceQueryEnd(_ context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	if data.Err != nil {
		logger.Get().Debug("SQL execution failed", "error", data.Err)
		return
	}
	logger.Get().Debug("SQL execution succeeded", "command_tag", data.CommandTag.String())
}
