// Package middleware is the HTTP client for the Hart96 dispenser middleware.
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pourline/pourline/internal/domain"
	"github.com/pourline/pourline/internal/platform/logging"
	"github.com/pourline/pourline/internal/platform/resilience"
)

var tracer = otel.Tracer("pourline/adapters/middleware")

// DurationObserver receives the duration of every middleware request.
type DurationObserver interface {
	ObserveMiddleware(op string, d time.Duration, err error)
}

// Options configures a Client.
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	ProbeTimeout time.Duration
	SerialPort   string
	Baudrate     int
	HTTPClient   *http.Client
	Breaker      *resilience.CircuitBreaker
	Observer     DurationObserver
	Logger       *logging.Logger
}

// Client implements domain.MiddlewareClient over HTTP.
type Client struct {
	baseURL      string
	probeTimeout time.Duration
	port         string
	baudrate     int
	http         *http.Client
	breaker      *resilience.CircuitBreaker
	observer     DurationObserver
	logger       *logging.Logger
}

var _ domain.MiddlewareClient = (*Client)(nil)

// New creates a Client. Zero options fall back to the Hart96 defaults.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 5 * time.Second
	}
	if opts.SerialPort == "" {
		opts.SerialPort = "COM1"
	}
	if opts.Baudrate <= 0 {
		opts.Baudrate = 9600
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		probeTimeout: opts.ProbeTimeout,
		port:         opts.SerialPort,
		baudrate:     opts.Baudrate,
		http:         opts.HTTPClient,
		breaker:      opts.Breaker,
		observer:     opts.Observer,
		logger:       opts.Logger,
	}
}

// BaseURL returns the middleware root URL.
func (c *Client) BaseURL() string { return c.baseURL }

type connectRequest struct {
	Port     string `json:"port"`
	Baudrate int    `json:"baudrate"`
}

type creditRequest struct {
	ServerNo int    `json:"server_no"`
	PLUNo    int    `json:"plu_no"`
	Sign     string `json:"sign"`
	Quantity int    `json:"quantity"`
}

// Connect opens the serial link on the middleware side.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.do(ctx, "connect", http.MethodPost, "/api/connect", connectRequest{Port: c.port, Baudrate: c.baudrate})
	return err
}

// Disconnect closes the serial link.
func (c *Client) Disconnect(ctx context.Context) error {
	_, err := c.do(ctx, "disconnect", http.MethodPost, "/api/disconnect", struct{}{})
	return err
}

// SendCredit sends one credit command. A 200 answer is a success when it is
// JSON with success=true or the plain text OK; anything else is a rejection.
func (c *Client) SendCredit(ctx context.Context, cmd domain.CreditCommand) (domain.MiddlewareReply, error) {
	plu, err := domain.PLUNumber(cmd.PLU)
	if err != nil {
		return domain.MiddlewareReply{}, fmt.Errorf("send-credit: %w", err)
	}
	sign := cmd.Sign
	if sign == "" {
		sign = domain.SignGrant
	}
	req := creditRequest{ServerNo: cmd.ServerNo, PLUNo: plu, Sign: string(sign), Quantity: cmd.Quantity}

	body, err := c.do(ctx, "send-credit", http.MethodPost, "/api/send-credit", req)
	if err != nil {
		return domain.MiddlewareReply{}, err
	}
	return parseCreditReply(body)
}

// Status asks the middleware whether it is up.
func (c *Client) Status(ctx context.Context) (domain.ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	res := domain.ProbeResult{URL: c.baseURL}
	body, err := c.do(ctx, "status", http.MethodGet, "/api/status", nil)
	if err != nil {
		return res, err
	}
	res.Success = true
	res.Message = "Connected to the middleware"
	if !json.Valid(body) {
		res.Message += " (non-JSON answer)"
	}
	return res, nil
}

func parseCreditReply(body []byte) (domain.MiddlewareReply, error) {
	raw := strings.TrimSpace(string(body))

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		if ok, _ := payload["success"].(bool); ok {
			msg, _ := payload["message"].(string)
			return domain.MiddlewareReply{Message: orDefault(msg, "Credit sent"), Raw: raw, Payload: payload}, nil
		}
		msg, _ := payload["error"].(string)
		return domain.MiddlewareReply{Raw: raw, Payload: payload}, &domain.TransportError{
			Op:      "send-credit",
			Code:    domain.TransportRejected,
			Message: orDefault(msg, "Credit rejected by the middleware"),
		}
	}

	if raw == "OK" {
		return domain.MiddlewareReply{Message: "Credit sent", Raw: raw}, nil
	}
	return domain.MiddlewareReply{Raw: raw}, &domain.TransportError{
		Op:      "send-credit",
		Code:    domain.TransportRejected,
		Message: "Unexpected response: " + raw,
	}
}

// do runs one request through the breaker. Connection failures and 5xx
// answers count against the breaker; 4xx answers do not.
func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	url := c.baseURL + path
	ctx, span := tracer.Start(ctx, "hart96."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", url),
		),
	)
	defer span.End()

	start := time.Now()
	var status int
	body, err := resilience.Execute(c.breaker, func() ([]byte, error) {
		b, code, err := c.roundTrip(ctx, op, method, url, payload)
		status = code
		if err != nil {
			return nil, err
		}
		if code >= http.StatusInternalServerError {
			return b, httpError(op, code, b)
		}
		return b, nil
	})
	if err == nil && status != http.StatusOK {
		err = httpError(op, status, body)
	}
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		err = &domain.TransportError{Op: op, Code: domain.TransportCircuitOpen, Err: err}
	}

	elapsed := time.Since(start)
	if c.observer != nil {
		c.observer.ObserveMiddleware(op, elapsed, err)
	}
	if status != 0 {
		span.SetAttributes(attribute.Int("http.status_code", status))
	}

	log := c.logger.With("op", op, "url", url, "status", status, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).Warn("middleware request failed")
		return body, err
	}
	span.SetStatus(codes.Ok, "")
	log.Debug("middleware request done")
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, op, method, url string, payload any) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: marshal request body: %w", op, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: create request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, transportError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, transportError(op, err)
	}
	return body, resp.StatusCode, nil
}

func transportError(op string, err error) error {
	code := domain.TransportConnection
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		code = domain.TransportTimeout
	}
	return &domain.TransportError{Op: op, Code: code, Err: err}
}

func httpError(op string, status int, body []byte) error {
	return &domain.TransportError{
		Op:      op,
		Code:    domain.TransportHTTP,
		Status:  status,
		Message: strings.TrimSpace(string(body)),
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
