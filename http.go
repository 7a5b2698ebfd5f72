package claude

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type HTTPClientOptions struct {
	// LogRequests indicates whether to log HTTP requests.
	LogRequests bool
	// Logger is the logger to use for logging HTTP requests and responses.
	Logger *slog.Logger
	// Config is the configuration for logging HTTP requests and responses.
	Config *LoggingConfig
}

// NewHTTPClient creates an http.Client with the provided options
func NewHTTPClient(options HTTPClientOptions) *http.Client {
	if !options.LogRequests && options.Logger == nil {
		return http.DefaultClient
	}
	config := DefaultLoggingConfig()
	if options.Config != nil {
		config = *options.Config
	}
	return &http.Client{
		Transport: NewLoggingRoundTripper(http.DefaultTransport, options.Logger, config),
	}
}

// NewDefaultHTTPClientWithLogging creates an http.Client that logs every
// exchange to the default structured logger.
func NewDefaultHTTPClientWithLogging() *http.Client {
	return &http.Client{
		Transport: NewLoggingRoundTripper(nil, nil, DefaultLoggingConfig()),
	}
}

// NewStreamingHTTPClientWithLogging creates an http.Client that logs
// server-sent events line by line as they are read.
func NewStreamingHTTPClientWithLogging(logger *slog.Logger, maxBodySize int64) *http.Client {
	if maxBodySize == 0 {
		maxBodySize = 4 * 1024
	}
	config := DefaultLoggingConfig()
	config.MaxBodySize = maxBodySize
	config.StreamingLog = true
	return &http.Client{
		Transport: NewLoggingRoundTripper(nil, logger, config),
	}
}

// LoggingConfig controls what gets logged
type LoggingConfig struct {
	LogHeaders      bool
	LogRequestBody  bool
	LogResponseBody bool
	MaxBodySize     int64 // Maximum body size to log in bytes
	StreamingLog    bool  // Log streamed bodies line by line as they are read
	// RedactHeaders lists headers whose values are replaced before logging.
	// Matching is case-insensitive.
	RedactHeaders []string
}

func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogHeaders:      true,
		LogRequestBody:  true,
		LogResponseBody: true,
		MaxBodySize:     1024,
		RedactHeaders:   []string{"X-Api-Key", "Authorization"},
	}
}

// LoggingRoundTripper implements http.RoundTripper with logging
type LoggingRoundTripper struct {
	transport http.RoundTripper
	logger    *slog.Logger
	config    LoggingConfig
}

// NewLoggingRoundTripper wraps transport. Nil arguments fall back to
// http.DefaultTransport and slog.Default().
func NewLoggingRoundTripper(transport http.RoundTripper, logger *slog.Logger, config LoggingConfig) *LoggingRoundTripper {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxBodySize == 0 {
		config.MaxBodySize = 1024
	}
	return &LoggingRoundTripper{
		transport: transport,
		logger:    logger,
		config:    config,
	}
}

// RoundTrip implements the http.RoundTripper interface
func (t *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	start := time.Now()
	requestID := uuid.NewString()
	out := req.Clone(ctx)

	reqAttrs := []slog.Attr{
		slog.String("request_id", requestID),
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
	}
	if t.config.LogHeaders && len(req.Header) > 0 {
		reqAttrs = append(reqAttrs, slog.Any("headers", t.redact(req.Header)))
	}
	if t.config.LogRequestBody && req.Body != nil {
		if logged, body, err := captureBody(req.Body, t.config.MaxBodySize); err == nil {
			reqAttrs = append(reqAttrs, slog.String("body", string(logged)))
			out.Body = body
		}
	}
	t.logger.LogAttrs(ctx, slog.LevelInfo, "HTTP request started", reqAttrs...)

	resp, err := t.transport.RoundTrip(out)

	respAttrs := []slog.Attr{
		slog.String("request_id", requestID),
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		respAttrs = append(respAttrs, slog.String("error", err.Error()))
		t.logger.LogAttrs(ctx, slog.LevelError, "HTTP request failed", respAttrs...)
		return nil, err
	}

	respAttrs = append(respAttrs,
		slog.Int("status_code", resp.StatusCode),
		slog.String("anthropic_request_id", resp.Header.Get("Request-Id")),
	)
	if t.config.LogHeaders && len(resp.Header) > 0 {
		respAttrs = append(respAttrs, slog.Any("response_headers", t.redact(resp.Header)))
	}
	if t.config.LogResponseBody && resp.Body != nil {
		if t.config.StreamingLog || isEventStream(resp) {
			resp.Body = &streamingBodyLogger{
				ctx:       ctx,
				body:      resp.Body,
				logger:    t.logger,
				requestID: requestID,
				maxSize:   t.config.MaxBodySize,
			}
		} else if logged, body, err := captureBody(resp.Body, t.config.MaxBodySize); err == nil {
			respAttrs = append(respAttrs, slog.String("response_body", string(logged)))
			resp.Body = body
		}
	}

	level := slog.LevelInfo
	switch {
	case resp.StatusCode >= 500:
		level = slog.LevelError
	case resp.StatusCode >= 400:
		level = slog.LevelWarn
	}
	t.logger.LogAttrs(ctx, level, "HTTP request completed", respAttrs...)

	return resp, nil
}

func (t *LoggingRoundTripper) redact(h http.Header) map[string][]string {
	out := make(map[string][]string, len(h))
	for k, v := range h {
		out[k] = v
		for _, name := range t.config.RedactHeaders {
			if strings.EqualFold(k, name) {
				out[k] = []string{"[REDACTED]"}
				break
			}
		}
	}
	return out
}

func isEventStream(resp *http.Response) bool {
	return strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream")
}

// captureBody drains body and returns at most maxSize bytes for logging
// together with a replacement reader holding the full content.
func captureBody(body io.ReadCloser, maxSize int64) ([]byte, io.ReadCloser, error) {
	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return nil, nil, err
	}
	logged := data
	if int64(len(logged)) > maxSize {
		logged = logged[:maxSize]
	}
	return logged, io.NopCloser(bytes.NewReader(data)), nil
}

// streamingBodyLogger logs each non-empty line of a streamed body, such as
// the event and data lines of server-sent events, until maxSize bytes have
// been logged.
type streamingBodyLogger struct {
	ctx       context.Context
	body      io.ReadCloser
	logger    *slog.Logger
	requestID string
	maxSize   int64
	totalRead int64
	logged    int64
	partial   []byte
}

func (s *streamingBodyLogger) Read(p []byte) (int, error) {
	n, err := s.body.Read(p)
	if n > 0 {
		s.totalRead += int64(n)
		s.logLines(p[:n])
	}
	return n, err
}

func (s *streamingBodyLogger) logLines(chunk []byte) {
	s.partial = append(s.partial, chunk...)
	for {
		i := bytes.IndexByte(s.partial, '\n')
		if i < 0 {
			return
		}
		line := strings.TrimRight(string(s.partial[:i]), "\r")
		s.partial = s.partial[i+1:]
		if line == "" || s.logged >= s.maxSize {
			continue
		}
		s.logged += int64(len(line))
		s.logger.LogAttrs(s.ctx, slog.LevelDebug, "HTTP streaming line",
			slog.String("request_id", s.requestID),
			slog.String("line", line),
			slog.Int64("bytes_read", s.totalRead))
	}
}

func (s *streamingBodyLogger) Close() error {
	s.logger.LogAttrs(s.ctx, slog.LevelInfo, "HTTP streaming body complete",
		slog.String("request_id", s.requestID),
		slog.Int64("total_bytes", s.totalRead))
	return s.body.Close()
}
