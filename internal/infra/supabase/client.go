// Package supabase is the PostgREST adapter behind the store ports.
// Every call runs inside the bulkhead, the circuit breaker and the retry loop.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	bulkhead       *resilience.Bulkhead
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		bulkhead:       resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:            cfg,
		logger:         logger,
	}
}

// APIError is a non-2xx PostgREST response.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase %s %s returned %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// transient reports whether retrying might succeed.
func (e *APIError) transient() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests || e.Status == http.StatusRequestTimeout
}

// execute runs fn inside the bulkhead, breaker and retry loop and maps the
// outcome to domain errors. service names the external dependency in errors.
// Non-transient PostgREST errors are never retried; retry=false disables
// retries altogether.
func (c *Client) execute(ctx context.Context, service string, retry bool, fn func() error) error {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return &domain.ErrExternalService{Service: service, Err: err}
	}
	defer c.bulkhead.Release()

	cfg := c.cfg
	if !retry {
		cfg.MaxRetries = 0
	}

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, cfg, func() error {
			err := fn()
			var apiErr *APIError
			if errors.As(err, &apiErr) && !apiErr.transient() && !resilience.IsPermanent(err) {
				return resilience.Permanent(err)
			}
			return err
		})
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: service}
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		return &domain.ErrConflict{Message: "registro duplicado o modificado por otro usuario"}
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}

// get decodes the JSON array at table?query into out.
func (c *Client) get(ctx context.Context, table string, query url.Values, out any) error {
	ctx, span := tracer.Start(ctx, "Supabase.GET "+table)
	defer span.End()
	span.SetAttributes(attribute.String("db.table", table))

	return c.execute(ctx, "supabase/"+table, true, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, table, query, nil, "")
		if err != nil {
			return err
		}
		if len(body) == 0 {
			body = []byte("[]")
		}
		if err := json.Unmarshal(body, out); err != nil {
			return resilience.Permanent(fmt.Errorf("decode %s: %w", table, err))
		}
		return nil
	})
}

// write sends a POST/PATCH with return=representation and decodes the rows.
// Writes are not retried: PostgREST gives no idempotency guarantee for them.
func (c *Client) write(ctx context.Context, method, table string, query url.Values, payload any, prefer string, out any) error {
	ctx, span := tracer.Start(ctx, "Supabase."+method+" "+table)
	defer span.End()
	span.SetAttributes(attribute.String("db.table", table))

	if prefer == "" {
		prefer = "return=representation"
	}

	return c.execute(ctx, "supabase/"+table, false, func() error {
		body, err := c.doRequest(ctx, method, table, query, payload, prefer)
		if err != nil {
			return err
		}
		if out == nil || len(body) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return resilience.Permanent(fmt.Errorf("decode %s: %w", table, err))
		}
		return nil
	})
}

// Ping checks that PostgREST answers. Used by /healthz.
func (c *Client) Ping(ctx context.Context) error {
	var rows []map[string]any
	q := url.Values{"select": {"key"}, "limit": {"1"}}
	return c.get(ctx, "configurations", q, &rows)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
