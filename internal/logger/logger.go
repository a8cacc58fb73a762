package logger

import (
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Options controls logger construction
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// New creates a structured logger. Unknown levels fall back to info and
// unknown formats to text.
func New(opts Options) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level, err := log.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = log.InfoLevel
	}

	formatter := log.TextFormatter
	switch strings.ToLower(opts.Format) {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	}

	return log.NewWithOptions(out, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
}

// Discard returns a logger that drops everything, for tests and quiet commands
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// ServiceName tags an outbound host the way request logs label it
func ServiceName(host string) string {
	h, port, err := net.SplitHostPort(strings.ToLower(host))
	if err != nil {
		h = strings.ToLower(host)
	}
	switch {
	case strings.Contains(h, "openai"):
		return "OPENAI"
	case strings.Contains(h, "serpapi"):
		return "SERPAPI"
	case strings.Contains(h, "ollama"), port == "11434":
		return "OLLAMA"
	}
	return h
}

// Transport logs every outbound request made through it
type Transport struct {
	Base   http.RoundTripper
	Logger *log.Logger
}

// NewClient returns an http.Client whose requests are logged
func NewClient(l *log.Logger, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &Transport{Base: http.DefaultTransport, Logger: l},
	}
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	if t.Logger == nil {
		return resp, err
	}

	fields := []any{
		"service", ServiceName(req.URL.Host),
		"method", req.Method,
		"path", req.URL.Path,
		"duration", time.Since(start),
	}
	if err != nil {
		t.Logger.Error("outbound request failed", append(fields, "err", err)...)
		return resp, err
	}

	fields = append(fields, "status", resp.StatusCode)
	if resp.StatusCode >= 400 {
		t.Logger.Warn("outbound request", fields...)
	} else {
		t.Logger.Debug("outbound request", fields...)
	}
	return resp, nil
}
