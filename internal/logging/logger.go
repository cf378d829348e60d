// Package logging builds the structured logger shared by the CLI, the HTTP
// API and the MCP server, and tracks correlated operations across them.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

// Operation types
const (
	OperationBuild    = "manifest_build"
	OperationToolCall = "tool_call"
	OperationRequest  = "http_request"
)

type contextKey string

const correlationKey contextKey = "correlation_id"

// NewLogger creates a logger from configuration. Unknown levels fall back to info.
// Output is "stdout", "stderr" or a file path.
func NewLogger(config domain.LoggingConfig) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(config.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	out, err := openOutput(config.Output)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(out)

	return logger, nil
}

func openOutput(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// WithCorrelation returns a context carrying correlationID.
func WithCorrelation(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationKey, correlationID)
}

// CorrelationID extracts the correlation id from ctx, or "" if none.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey).(string); ok {
		return id
	}
	return ""
}

// Operation tracks one logged unit of work from start to end.
type Operation struct {
	entry *logrus.Entry
	start time.Time
}

// StartOperation logs the start of an operation and returns a context that
// carries its correlation id, minting one when ctx has none.
func StartOperation(ctx context.Context, logger *logrus.Logger, operationType, name string, fields logrus.Fields) (context.Context, *Operation) {
	correlationID := CorrelationID(ctx)
	if correlationID == "" {
		correlationID = uuid.New().String()
		ctx = WithCorrelation(ctx, correlationID)
	}

	entry := logger.WithFields(logrus.Fields{
		"correlation_id": correlationID,
		"operation_type": operationType,
		"operation_name": name,
	}).WithFields(fields)
	entry.Debug("Operation started")

	return ctx, &Operation{entry: entry, start: time.Now()}
}

// End logs completion or failure with the elapsed time.
func (o *Operation) End(err error, fields logrus.Fields) {
	entry := o.entry.WithFields(fields).WithField("duration_ms", time.Since(o.start).Milliseconds())
	if err != nil {
		entry.WithError(err).Error("Operation failed")
		return
	}
	entry.Info("Operation completed")
}
