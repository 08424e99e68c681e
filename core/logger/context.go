package logger

import (
	"context"
	"fmt"
)

type ctxKey int

const ridKey ctxKey = iota

// BuildRID composes a request id from update, chat and user identifiers.
func BuildRID(updateID int, chatID, userID int64) string {
	return fmt.Sprintf("%d:%d:%d", updateID, chatID, userID)
}

// WithRID attaches a request id to the context.
func WithRID(ctx context.Context, rid string) context.Context {
	if rid == "" {
		return ctx
	}
	return context.WithValue(ctx, ridKey, rid)
}

// RIDFrom extracts the request id from the context, if any.
func RIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	rid, _ := ctx.Value(ridKey).(string)
	return rid
}
