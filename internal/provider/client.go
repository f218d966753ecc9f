package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"witweb-studio/internal/models"
	"witweb-studio/internal/utils"
	"witweb-studio/pkg/logger"
)

const tracerName = "witweb-studio/internal/provider"

// Settings is the configuration snapshot a single call runs with
type Settings struct {
	APIKey   string
	HostMode models.HostMode
}

// SettingsSource yields a fresh snapshot for every outbound call
type SettingsSource interface {
	Settings(ctx context.Context) (Settings, error)
}

// StaticSettings is a SettingsSource that never changes
type StaticSettings Settings

func (s StaticSettings) Settings(context.Context) (Settings, error) {
	return Settings(s), nil
}

type Options struct {
	Hosts           Hosts
	Settings        SettingsSource
	HTTPClient      *http.Client
	AttemptsPerHost int
	RetryDelay      time.Duration
	Logger          *zap.Logger
}

// Client performs provider calls with ordered host failover and a bounded
// number of attempts per host.
type Client struct {
	hosts           Hosts
	settings        SettingsSource
	httpClient      *http.Client
	attemptsPerHost int
	retryDelay      time.Duration
	log             *zap.Logger
	tracer          trace.Tracer
}

func NewClient(opts Options) *Client {
	if opts.Hosts.Domestic == "" {
		opts.Hosts.Domestic = DefaultDomesticHost
	}
	if opts.Hosts.Overseas == "" {
		opts.Hosts.Overseas = DefaultOverseasHost
	}
	if opts.Settings == nil {
		opts.Settings = StaticSettings{HostMode: models.HostModeAuto}
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = utils.NewHTTPClient(30 * time.Second)
	}
	if opts.AttemptsPerHost <= 0 {
		opts.AttemptsPerHost = 3
	}
	if opts.Logger == nil {
		opts.Logger = logger.Named("provider")
	}
	return &Client{
		hosts:           opts.Hosts,
		settings:        opts.Settings,
		httpClient:      opts.HTTPClient,
		attemptsPerHost: opts.AttemptsPerHost,
		retryDelay:      opts.RetryDelay,
		log:             opts.Logger,
		tracer:          otel.Tracer(tracerName),
	}
}

// PostJSON posts payload as JSON to path
func (c *Client) PostJSON(ctx context.Context, path string, payload interface{}) (*Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", path, err)
	}
	return c.do(ctx, http.MethodPost, path, nil, body)
}

// GetJSON issues a GET to path with query
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values) (*Envelope, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (*Envelope, error) {
	settings, err := c.settings.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load provider settings: %w", err)
	}
	hosts := c.hosts.Order(settings.HostMode)

	ctx, span := c.tracer.Start(ctx, method+" "+path, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("provider.path", path),
			attribute.String("provider.host_mode", string(settings.HostMode)),
		))
	defer span.End()

	var lastErr error
	attempts := 0
	for _, host := range hosts {
		for i := 0; i < c.attemptsPerHost; i++ {
			if attempts > 0 && c.retryDelay > 0 {
				t := time.NewTimer(c.retryDelay)
				select {
				case <-ctx.Done():
					t.Stop()
					span.SetStatus(codes.Error, "canceled")
					return nil, ctx.Err()
				case <-t.C:
				}
			}
			if err := ctx.Err(); err != nil {
				span.SetStatus(codes.Error, "canceled")
				return nil, err
			}

			attempts++
			env, err := c.attempt(ctx, method, host, path, query, body, settings.APIKey, attempts)
			if err == nil {
				span.SetAttributes(attribute.Int("provider.attempts", attempts), attribute.String("provider.host", host))
				return env, nil
			}
			lastErr = err
			c.log.Warn("provider attempt failed",
				zap.String("host", host),
				zap.String("path", path),
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
		}
	}

	err = &ExhaustedError{Path: path, Attempts: attempts, Last: lastErr}
	span.SetAttributes(attribute.Int("provider.attempts", attempts))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.log.Error("provider call exhausted", zap.String("path", path), zap.Int("attempts", attempts), zap.Error(lastErr))
	return nil, err
}

func (c *Client) attempt(ctx context.Context, method, host, path string, query url.Values, body []byte, apiKey string, n int) (*Envelope, error) {
	ctx, span := c.tracer.Start(ctx, "attempt", trace.WithAttributes(
		attribute.String("provider.host", host),
		attribute.Int("provider.attempt", n),
	))
	defer span.End()

	env, err := c.roundTrip(ctx, method, host, path, query, body, apiKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return env, err
}

func (c *Client) roundTrip(ctx context.Context, method, host, path string, query url.Values, body []byte, apiKey string) (*Envelope, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, host+path, reader)
	if err != nil {
		return nil, &TransportError{Host: host, Err: err}
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Host: host, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Host: host, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Host: host, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status: %s", bytes.TrimSpace(raw))}
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, &TransportError{Host: host, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if env.Code != nil && *env.Code != 0 {
		return nil, &ApplicationError{Host: host, Code: *env.Code, Msg: env.Msg}
	}
	env.Host = host
	return env, nil
}

// GetResult fetches the current snapshot of a job
func (c *Client) GetResult(ctx context.Context, id string) (*TaskSnapshot, error) {
	env, err := c.PostJSON(ctx, ResultPath, map[string]string{"id": id})
	if err != nil {
		return nil, err
	}
	var snap TaskSnapshot
	if err := env.Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode result for %s: %w", id, err)
	}
	if snap.ID == "" {
		snap.ID = id
	}
	return &snap, nil
}
