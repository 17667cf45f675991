package logging

import (
	"log"
	"log/slog"
	"os"
	"strings"
)

// DefaultService names the daemon when Setup is called with a blank service.
const DefaultService = "bnjid"

// Setup configures the process for structured JSON logs on stdout and returns
// the slog.Logger the daemon threads through its components. Every line
// carries the service name and, when provided, the deployment environment, so
// engine settlement logs can be filtered per instance.
func Setup(service, env string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: renameAttrs,
	})

	if service = strings.TrimSpace(service); service == "" {
		service = DefaultService
	}
	attrs := []slog.Attr{slog.String("service", service)}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	withArgs := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		withArgs = append(withArgs, attr)
	}

	base := slog.New(handler).With(withArgs...)
	slog.SetDefault(base)

	// Bridge the standard library logger so dependencies keep working.
	stdBridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}

// renameAttrs maps slog's default keys onto the field names the rest of the
// token tooling expects when ingesting these logs.
func renameAttrs(groups []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		return slog.Attr{Key: "timestamp", Value: attr.Value}
	case slog.LevelKey:
		return slog.String("severity", strings.ToUpper(attr.Value.String()))
	case slog.MessageKey:
		return slog.Attr{Key: "message", Value: attr.Value}
	}
	return attr
}
