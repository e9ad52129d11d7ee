// Package apiclient is the single transport seam to the asset-tracking API.
// It owns credential injection, the success/failure envelopes, and request
// tracing; the stores above it only see decoded payloads and coded errors.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"assetdesk/internal/platform/config"
	"assetdesk/internal/platform/metrics"
	domainerrors "assetdesk/pkg/domain-errors"
	"assetdesk/pkg/platform/sentinel"
)

// GenericFailure is the fallback alert message when the server response
// carries no usable message of its own.
const GenericFailure = "Something went wrong"

// File is one multipart attachment on an accessory create call.
type File struct {
	Field   string
	Name    string
	Content []byte
}

type Client struct {
	baseURL string
	httpc   *http.Client
	creds   interface {
		Token(ctx context.Context) (string, error)
	}
	logger *slog.Logger
	meter  *metrics.Metrics
	tracer trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.meter = m }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpc.Timeout = d }
}

// TokenSource matches credential.Provider without importing it, keeping the
// transport free of credential-storage concerns.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

func New(baseURL string, creds TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: config.DefaultRequestTimeout},
		creds:   creds,
		logger:  slog.Default(),
		tracer:  otel.Tracer("assetdesk/apiclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return domainerrors.Wrap(domainerrors.CodeInternal, GenericFailure, err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), "application/json", out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return domainerrors.Wrap(domainerrors.CodeInternal, GenericFailure, err)
	}
	return c.do(ctx, http.MethodPut, path, bytes.NewReader(payload), "application/json", out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, "", nil)
}

// PostMultipart encodes fields and attachments as multipart/form-data. Used
// for accessory creation, whose payload may carry binary images.
func (c *Client) PostMultipart(ctx context.Context, path string, fields url.Values, files []File, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, values := range fields {
		for _, value := range values {
			if err := writer.WriteField(key, value); err != nil {
				return domainerrors.Wrap(domainerrors.CodeInternal, GenericFailure, err)
			}
		}
	}
	for _, file := range files {
		part, err := writer.CreateFormFile(file.Field, file.Name)
		if err != nil {
			return domainerrors.Wrap(domainerrors.CodeInternal, GenericFailure, err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return domainerrors.Wrap(domainerrors.CodeInternal, GenericFailure, err)
		}
	}
	if err := writer.Close(); err != nil {
		return domainerrors.Wrap(domainerrors.CodeInternal, GenericFailure, err)
	}
	return c.do(ctx, http.MethodPost, path, &buf, writer.FormDataContentType(), out)
}

// envelope is the success wrapper the API puts around every payload.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// apiError is the failure wrapper: either a top-level message or a map of
// per-field messages.
type apiError struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return domainerrors.Wrap(domainerrors.CodeUnauthorized, "Unauthorized", err)
	}

	ctx, span := c.tracer.Start(ctx, method+" "+path)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return domainerrors.Wrap(domainerrors.CodeInternal, GenericFailure, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		if c.meter != nil {
			c.meter.ObserveRequest(start, true)
		}
		span.SetStatus(codes.Error, err.Error())
		return c.transportError(method, path, err)
	}
	defer resp.Body.Close()

	if c.meter != nil {
		c.meter.ObserveRequest(start, resp.StatusCode >= http.StatusBadRequest)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		serverErr := c.serverError(resp)
		span.SetStatus(codes.Error, serverErr.Error())
		c.logger.Warn("api call failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
		return serverErr
	}

	if out == nil {
		return nil
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return domainerrors.Wrap(domainerrors.CodeInternal, GenericFailure, err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return domainerrors.Wrap(domainerrors.CodeInternal, GenericFailure, err)
	}
	return nil
}

func (c *Client) transportError(method, path string, err error) error {
	c.logger.Warn("api call did not complete", "method", method, "path", path, "error", err)
	var netErr interface{ Timeout() bool }
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domainerrors.Wrap(domainerrors.CodeTimeout, "Request timed out", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return domainerrors.Wrap(domainerrors.CodeTimeout, "Request timed out", err)
	case errors.Is(err, context.Canceled):
		// Superseded fetches land here; stores discard by scope token.
		return domainerrors.Wrap(domainerrors.CodeUnavailable, GenericFailure, err)
	default:
		return domainerrors.Wrap(domainerrors.CodeUnavailable, GenericFailure,
			fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err))
	}
}

// serverError maps a non-success response to a coded error, preferring a
// field-specific message, then the top-level message, then the generic
// fallback.
func (c *Client) serverError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	message := GenericFailure
	var payload apiError
	if err := json.Unmarshal(raw, &payload); err == nil {
		if fieldMsg := firstFieldMessage(payload.Errors); fieldMsg != "" {
			message = fieldMsg
		} else if payload.Message != "" {
			message = payload.Message
		}
	}

	code := domainerrors.CodeUnavailable
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		code = domainerrors.CodeBadRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		code = domainerrors.CodeUnauthorized
	case http.StatusNotFound:
		code = domainerrors.CodeNotFound
	case http.StatusRequestTimeout:
		code = domainerrors.CodeTimeout
	}
	if code == domainerrors.CodeNotFound {
		return domainerrors.Wrap(code, message, sentinel.ErrNotFound)
	}
	return domainerrors.New(code, message)
}

// firstFieldMessage picks the first message of the alphabetically first field
// so the surfaced text is deterministic.
func firstFieldMessage(fields map[string][]string) string {
	if len(fields) == 0 {
		return ""
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		if len(fields[name]) > 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return fields[names[0]][0]
}
