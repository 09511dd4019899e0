// Package client talks to the upstream service that registers students and
// hands out form schemas.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"student_forms/internal/model"
	"student_forms/pkg/monitoring"
	"student_forms/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
)

var ErrUpstream = errors.New("upstream request failed")

// Error describes a failed upstream call. Transport failures and non-2xx
// replies are not told apart by callers; both unwrap to ErrUpstream.
type Error struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: upstream status %d: %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUpstream, e.Err}
	}
	return []error{ErrUpstream}
}

const maxErrorBody = 512

type UpstreamClient struct {
	baseURL string
	http    *http.Client
}

// NewUpstreamClient builds a client for baseURL. A zero timeout means calls
// are bounded only by their context.
func NewUpstreamClient(baseURL string, timeout time.Duration) *UpstreamClient {
	return &UpstreamClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// RegisterUser posts the login data to {base}/create-user.
func (c *UpstreamClient) RegisterUser(ctx context.Context, user model.UserData) error {
	body, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.do(ctx, "create-user", http.MethodPost, c.baseURL+"/create-user", body, nil)
}

// GetForm fetches the schema assigned to rollNumber from {base}/get-form.
func (c *UpstreamClient) GetForm(ctx context.Context, rollNumber string) (*model.FormSchema, error) {
	q := url.Values{}
	q.Set("rollNumber", rollNumber)

	var resp model.FormResponse
	if err := c.do(ctx, "get-form", http.MethodGet, c.baseURL+"/get-form?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Form, nil
}

func (c *UpstreamClient) do(ctx context.Context, op, method, target string, body []byte, out interface{}) (err error) {
	ctx, span := tracing.Tracer.Start(ctx, "upstream."+op)
	span.SetAttributes(attribute.String("http.method", method))
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		monitoring.UpstreamDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
		span.End()
	}()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
