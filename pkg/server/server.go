// Package server speaks MCP over stdio: line-delimited JSON-RPC 2.0
// requests on stdin, responses on stdout. All logging goes to stderr so
// the protocol stream stays clean.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	"github.com/umuterturk/mcp-proto/pkg/catalog"
	"github.com/umuterturk/mcp-proto/pkg/observability"
)

var tracer = otel.Tracer("github.com/umuterturk/mcp-proto/pkg/server")

const (
	protocolVersion = "2024-11-05"
	serverName      = "mcp-proto"
	serverVersion   = "2.0.0"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)

// Request is a JSON-RPC 2.0 request. A nil ID marks a notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Server serves MCP tool calls against a catalog.
type Server struct {
	catalog *catalog.Catalog
	logger  *observability.Logger
	metrics *observability.Metrics
	reader  *bufio.Reader
	writer  *bufio.Writer
}

// Option configures a Server.
type Option func(*Server)

// WithIO overrides the protocol streams. Used by tests; the default is
// stdin and stdout.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(s *Server) {
		s.reader = bufio.NewReader(r)
		s.writer = bufio.NewWriter(w)
	}
}

// WithMetrics attaches Prometheus metrics to request handling.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a Server bound to stdin/stdout.
func New(cat *catalog.Catalog, logger *observability.Logger, opts ...Option) *Server {
	s := &Server{
		catalog: cat,
		logger:  logger,
		reader:  bufio.NewReader(os.Stdin),
		writer:  bufio.NewWriter(os.Stdout),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reads requests line by line until EOF or context cancellation.
// A malformed or failing request is answered with a JSON-RPC error and
// the loop continues.
func (s *Server) Run(ctx context.Context) error {
	s.logger.WithField("protocol_version", protocolVersion).Info("server starting")

	processed := 0
	defer func() {
		s.logger.WithField("requests_processed", processed).Info("server exiting")
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.WithError(ctx.Err()).Info("context cancelled, shutting down")
			return ctx.Err()
		default:
		}

		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				s.logger.Info("stdin closed, client disconnected")
				return nil
			}
			s.logger.WithError(err).Error("failed to read from stdin")
			return fmt.Errorf("failed to read from stdin: %w", err)
		}

		processed++
		reqCtx := observability.WithRequestID(ctx, uuid.New().String())
		if err := s.handleLine(reqCtx, line); err != nil {
			s.logger.WithError(err).Error("failed to handle request")
		}
	}
}

// handleLine parses and dispatches one request, recovering from handler
// panics so a single bad request cannot take the server down.
func (s *Server) handleLine(ctx context.Context, line []byte) (err error) {
	var req Request
	if uerr := json.Unmarshal(line, &req); uerr != nil {
		s.logger.WithError(uerr).Error("failed to parse request")
		return s.sendError(nil, codeParseError, "Parse error", map[string]interface{}{"details": uerr.Error()})
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", r).WithField("method", req.Method).Error("panic in handler")
			if req.ID != nil {
				err = s.sendError(req.ID, codeInternalError, fmt.Sprintf("internal error: %v", r), nil)
			}
		}
	}()

	// Notifications carry no ID and get no response.
	if req.ID == nil {
		s.logger.WithField("method", req.Method).Debug("notification received")
		return nil
	}

	ctx, span := tracer.Start(ctx, "server.handleRequest")
	defer span.End()
	span.SetAttributes(attribute.String("rpc.method", req.Method))

	start := time.Now()
	result, handlerErr := s.dispatch(ctx, &req)
	s.recordRequest(req.Method, handlerErr, time.Since(start))

	if handlerErr != nil {
		span.RecordError(handlerErr)
		span.SetStatus(otelcodes.Error, handlerErr.Error())
		if rpcErr, ok := handlerErr.(*Error); ok {
			return s.sendError(req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		}
		return s.sendError(req.ID, codeInternalError, handlerErr.Error(), map[string]interface{}{"method": req.Method})
	}

	return s.sendResponse(req.ID, result)
}

func (e *Error) Error() string {
	return e.Message
}

func (s *Server) dispatch(ctx context.Context, req *Request) (interface{}, error) {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(), nil
	case "tools/list":
		return s.handleListTools(), nil
	case "tools/call":
		return s.handleToolCall(ctx, req.Params)
	case "ping":
		return map[string]interface{}{}, nil
	default:
		s.logger.WithField("method", req.Method).Warn("unknown method")
		return nil, &Error{
			Code:    codeMethodNotFound,
			Message: "Method not found",
			Data:    map[string]interface{}{"method": req.Method},
		}
	}
}

func (s *Server) handleInitialize() interface{} {
	return map[string]interface{}{
		"protocolVersion": protocolVersion,
		"serverInfo": map[string]interface{}{
			"name":    serverName,
			"version": serverVersion,
		},
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
	}
}

func (s *Server) sendResponse(id, result interface{}) error {
	return s.write(Response{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) sendError(id interface{}, code int, message string, data interface{}) error {
	return s.write(Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: message, Data: data},
	})
}

func (s *Server) write(resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.WithError(err).Error("failed to marshal response")
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	data = append(data, '\n')
	if _, err := s.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return s.writer.Flush()
}

func (s *Server) recordRequest(method string, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.RPCRequestsTotal.WithLabelValues(method, status).Inc()
	s.metrics.RPCRequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}
