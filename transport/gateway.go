// Package transport is the single point of outbound HTTP to the VendorIQ
// backend. A Gateway resolves paths against one base endpoint, bounds every
// call with a timeout, runs an ordered request pipeline before dispatch and
// an ordered response pipeline after it, and reports every failure as a
// *Failure.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/vendoriq-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxBodyBytes          = 10 << 20
)

// Config is the gateway configuration fixed at startup.
type Config struct {
	BaseEndpoint   string
	RequestTimeout time.Duration
}

// RequestStage runs against every outgoing request, in registration order,
// immediately before it is sent. Returning an error aborts the call.
type RequestStage func(req *http.Request) error

// ResponseStage observes every finished call, in registration order. It may
// enrich ex.Failure but never clears it.
type ResponseStage func(ex *Exchange)

// Exchange is one finished call as seen by the response pipeline.
type Exchange struct {
	Request    *http.Request
	Path       string // relative to the base endpoint, without query
	StatusCode int    // 0 when no response arrived
	Body       []byte
	Duration   time.Duration
	Failure    *Failure
}

// Gateway is safe for concurrent use once constructed.
type Gateway struct {
	baseURL        *url.URL
	client         *http.Client
	requestStages  []RequestStage
	responseStages []ResponseStage
	logger         zerolog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the underlying client. Its Timeout is overwritten
// with the configured request timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		g.client = client
	}
}

// WithRequestStages appends request stages.
func WithRequestStages(stages ...RequestStage) Option {
	return func(g *Gateway) {
		g.requestStages = append(g.requestStages, stages...)
	}
}

// WithResponseStages appends response stages.
func WithResponseStages(stages ...ResponseStage) Option {
	return func(g *Gateway) {
		g.responseStages = append(g.responseStages, stages...)
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// New builds a Gateway for cfg.BaseEndpoint.
func New(cfg Config, options ...Option) (*Gateway, error) {
	if strings.TrimSpace(cfg.BaseEndpoint) == "" {
		return nil, errors.New("[transport New] base endpoint is required")
	}
	endpoint := cfg.BaseEndpoint
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	baseURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "[transport New] invalid base endpoint")
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, errors.Errorf("[transport New] base endpoint %q must be absolute", cfg.BaseEndpoint)
	}

	g := &Gateway{
		baseURL: baseURL,
		client:  &http.Client{},
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(g)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	client := *g.client
	client.Timeout = timeout
	g.client = &client

	return g, nil
}

// BaseEndpoint returns the resolved endpoint every path is relative to.
func (g *Gateway) BaseEndpoint() string {
	return g.baseURL.String()
}

// Timeout returns the bound applied to every call.
func (g *Gateway) Timeout() time.Duration {
	return g.client.Timeout
}

// Do sends a request with an optional JSON body and decodes a JSON response
// into out when out is non-nil. Any error it returns is a *Failure.
func (g *Gateway) Do(ctx context.Context, method, path string, body, out any) error {
	relPath, target, err := g.resolve(path)
	if err != nil {
		g.logger.Warn().Err(err).Str("method", method).Msg("[Gateway.Do] rejected path")
		return &Failure{Method: method, Path: path, Err: err}
	}

	ex := &Exchange{Path: relPath}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			ex.Failure = &Failure{Method: method, Path: relPath, Err: errors.Wrap(err, "encode request body")}
			return g.finish(ex)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		ex.Failure = &Failure{Method: method, Path: relPath, Err: err}
		return g.finish(ex)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	ex.Request = req

	for _, stage := range g.requestStages {
		if err := stage(req); err != nil {
			g.logger.Warn().Err(err).Str("method", method).Str("path", relPath).Msg("[Gateway.Do] request stage aborted the call")
			ex.Failure = &Failure{Method: method, Path: relPath, Err: err}
			return g.finish(ex)
		}
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		ex.Duration = time.Since(start)
		ex.Failure = transportFailure(method, relPath, err)
		return g.finish(ex)
	}
	defer resp.Body.Close()

	ex.StatusCode = resp.StatusCode
	ex.Body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	ex.Duration = time.Since(start)
	if err != nil {
		ex.Failure = transportFailure(method, relPath, err)
		ex.Failure.HTTPStatus = resp.StatusCode
		return g.finish(ex)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		ex.Failure = responseFailure(method, relPath, resp.StatusCode, ex.Body)
		return g.finish(ex)
	}

	if out != nil && len(bytes.TrimSpace(ex.Body)) > 0 {
		if err := json.Unmarshal(ex.Body, out); err != nil {
			ex.Failure = &Failure{
				Method:     method,
				Path:       relPath,
				HTTPStatus: resp.StatusCode,
				Err:        errors.Wrapf(apperrors.ErrUnexpectedResponse, "decode response body: %v", err),
			}
		}
	}
	return g.finish(ex)
}

func (g *Gateway) Get(ctx context.Context, path string, out any) error {
	return g.Do(ctx, http.MethodGet, path, nil, out)
}

func (g *Gateway) Post(ctx context.Context, path string, body, out any) error {
	return g.Do(ctx, http.MethodPost, path, body, out)
}

func (g *Gateway) Put(ctx context.Context, path string, body, out any) error {
	return g.Do(ctx, http.MethodPut, path, body, out)
}

func (g *Gateway) Patch(ctx context.Context, path string, body, out any) error {
	return g.Do(ctx, http.MethodPatch, path, body, out)
}

func (g *Gateway) Delete(ctx context.Context, path string) error {
	return g.Do(ctx, http.MethodDelete, path, nil, nil)
}

// finish runs the response pipeline and returns the exchange's failure, if
// any, as an error.
func (g *Gateway) finish(ex *Exchange) error {
	for _, stage := range g.responseStages {
		stage(ex)
	}
	if ex.Failure != nil {
		return ex.Failure
	}
	return nil
}

// resolve joins path onto the base endpoint. Leading slashes are dropped so
// that "/products/" and "products/" both stay under the base path.
func (g *Gateway) resolve(path string) (string, *url.URL, error) {
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return path, nil, errors.Wrapf(err, "invalid path %q", path)
	}
	if ref.IsAbs() || ref.Host != "" {
		return path, nil, errors.Errorf("path %q must be relative to the base endpoint", path)
	}
	return ref.Path, g.baseURL.ResolveReference(ref), nil
}
