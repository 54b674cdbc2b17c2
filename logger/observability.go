// Package logger provides structured, JSON-formatted request logging via
// logrus, the same library and field-naming convention the proxy this was
// adapted from used for its own Loki-bound logs.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Component constants for consistent labeling across log lines.
const (
	ComponentProxy     = "proxy_core"
	ComponentAdapter   = "adapter"
	ComponentDirective = "directive"
	ComponentStreaming = "streaming"
	ComponentConfig    = "configuration"
)

// Category constants for log classification.
const (
	CategoryRequest        = "request"
	CategoryTransformation = "transformation"
	CategorySuccess        = "success"
	CategoryError          = "error"
	CategoryUpstream       = "upstream"
)

// ObservabilityLogger wraps a logrus.Logger configured for JSON output,
// tagging every entry with the proxy's component/category/request_id
// conventions.
type ObservabilityLogger struct {
	logger *logrus.Logger
}

// New creates an ObservabilityLogger writing JSON lines to stdout.
func New() *ObservabilityLogger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logger.SetLevel(logrus.InfoLevel)
	logger = logger.WithField("service", "messagebridge").Logger

	return &ObservabilityLogger{logger: logger}
}

func (o *ObservabilityLogger) entry(component, category, requestID string, fields map[string]interface{}) *logrus.Entry {
	entry := o.logger.WithFields(logrus.Fields{
		"component": component,
		"category":  category,
	})
	if requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	return entry
}

func (o *ObservabilityLogger) Debug(component, category, requestID, message string, fields map[string]interface{}) {
	o.entry(component, category, requestID, fields).Debug(message)
}

func (o *ObservabilityLogger) Info(component, category, requestID, message string, fields map[string]interface{}) {
	o.entry(component, category, requestID, fields).Info(message)
}

func (o *ObservabilityLogger) Warn(component, category, requestID, message string, fields map[string]interface{}) {
	o.entry(component, category, requestID, fields).Warn(message)
}

func (o *ObservabilityLogger) Error(component, category, requestID, message string, fields map[string]interface{}) {
	o.entry(component, category, requestID, fields).Error(message)
}

// Request logs the arrival of a proxied request.
func (o *ObservabilityLogger) Request(requestID, message string, fields map[string]interface{}) {
	o.Info(ComponentProxy, CategoryRequest, requestID, message, fields)
}

// UpstreamError logs a non-2xx response from the upstream.
func (o *ObservabilityLogger) UpstreamError(requestID, message string, fields map[string]interface{}) {
	o.Error(ComponentProxy, CategoryUpstream, requestID, message, fields)
}
