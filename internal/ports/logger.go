package ports

import "context"

// Fields carries structured key/value context attached to a log entry.
// Only the first map passed to a Logger method is used.
type Fields = map[string]interface{}

// Logger is the structured logger every component writes through.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Fields)
	Info(ctx context.Context, msg string, fields ...Fields)
	Warn(ctx context.Context, msg string, fields ...Fields)
	// Error logs err under msg; err is attached as the "error" field.
	Error(ctx context.Context, err error, msg string, fields ...Fields)
}
