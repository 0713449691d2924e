// Package gateway talks to the Clash external controller over HTTP.
//
// Every call performs one request/response exchange and holds no state
// between calls. Failures are reported as *RequestError values.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jmylchreest/clashui/internal/model"
)

// Controller defaults.
const (
	DefaultEndpoint     = "http://127.0.0.1:9090"
	DefaultDelayURL     = "https://www.google.com"
	DefaultDelayTimeout = 60000 // milliseconds

	// HelloBody is the exact greeting returned by GET / on a live controller.
	HelloBody = "{\"hello\":\"clash\"}\n"
)

const (
	pathRoot        = "/"
	pathLogs        = "/logs"
	pathTraffic     = "/traffic"
	pathVersion     = "/version"
	pathConfigs     = "/configs"
	pathProxies     = "/proxies"
	pathRules       = "/rules"
	pathConnections = "/connections"
	pathProviders   = "/providers/proxies"

	maxErrorBody = 1024
)

// Client is a Clash external controller client.
type Client struct {
	httpClient   *http.Client
	endpoint     string
	token        string
	delayURL     string
	delayTimeout int
	logger       *slog.Logger
}

// NewClient creates a client for the controller at endpoint.
// An empty endpoint selects DefaultEndpoint; an empty token sends no
// Authorization header.
func NewClient(httpClient *http.Client, endpoint, token string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		httpClient:   httpClient,
		endpoint:     strings.TrimRight(endpoint, "/"),
		token:        token,
		delayURL:     DefaultDelayURL,
		delayTimeout: DefaultDelayTimeout,
		logger:       slog.Default(),
	}
}

// SetDelayTest overrides the URL and timeout used by delay tests.
// Zero values keep the current setting.
func (c *Client) SetDelayTest(testURL string, timeoutMS int) {
	if testURL != "" {
		c.delayURL = testURL
	}
	if timeoutMS > 0 {
		c.delayTimeout = timeoutMS
	}
}

// SetLogger sets the logger used for request tracing.
func (c *Client) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	c.logger = logger
}

// Endpoint returns the controller base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// CheckAvailable verifies the controller answers GET / with HelloBody.
func (c *Client) CheckAvailable(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, pathRoot, nil, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, c.transportError(http.MethodGet, pathRoot, err))
	}
	if string(body) != HelloBody {
		return fmt.Errorf("%w: unexpected greeting %q", ErrUnavailable, body)
	}
	return nil
}

// Logs returns the first entry of the log stream.
func (c *Client) Logs(ctx context.Context) (any, error) {
	return c.getValue(ctx, pathLogs)
}

// Traffic returns the first sample of the traffic stream.
func (c *Client) Traffic(ctx context.Context) (*model.Traffic, error) {
	var t model.Traffic
	if err := c.getJSON(ctx, pathTraffic, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Version returns the daemon version.
func (c *Client) Version(ctx context.Context) (*model.Version, error) {
	var v model.Version
	if err := c.getJSON(ctx, pathVersion, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Config returns the running configuration.
func (c *Client) Config(ctx context.Context) (any, error) {
	return c.getValue(ctx, pathConfigs)
}

// ReloadConfig asks the daemon to load the configuration file at path.
func (c *Client) ReloadConfig(ctx context.Context, path string) error {
	return c.put(ctx, pathConfigs, map[string]string{"path": path})
}

// Rules returns the rule set.
func (c *Client) Rules(ctx context.Context) (any, error) {
	return c.getValue(ctx, pathRules)
}

// Connections returns the active connections.
func (c *Client) Connections(ctx context.Context) (any, error) {
	return c.getValue(ctx, pathConnections)
}

// Proxies fetches every proxy as an ordered snapshot.
func (c *Client) Proxies(ctx context.Context) (*model.Snapshot, error) {
	data, err := c.getRaw(ctx, pathProxies)
	if err != nil {
		return nil, err
	}
	snapshot, err := model.ParseSnapshot(data)
	if err != nil {
		return nil, c.decodeError(http.MethodGet, pathProxies, err)
	}
	return snapshot, nil
}

// ProxyNames returns the names of all proxies in daemon order.
func (c *Client) ProxyNames(ctx context.Context) ([]string, error) {
	snapshot, err := c.Proxies(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.Names(), nil
}

// Proxy fetches a single proxy by name.
func (c *Client) Proxy(ctx context.Context, name string) (*model.ProxyRecord, error) {
	var p model.ProxyRecord
	if err := c.getJSON(ctx, proxyPath(name), nil, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		p.Name = name
	}
	return &p, nil
}

// SelectProxy makes proxy the active member of selector.
func (c *Client) SelectProxy(ctx context.Context, selector, proxy string) error {
	return c.put(ctx, proxyPath(selector), map[string]string{"name": proxy})
}

// ProxyDelay runs a delay test against the configured test URL.
func (c *Client) ProxyDelay(ctx context.Context, name string) (*model.Delay, error) {
	query := url.Values{}
	query.Set("timeout", strconv.Itoa(c.delayTimeout))
	query.Set("url", c.delayURL)

	var d model.Delay
	if err := c.getJSON(ctx, proxyPath(name)+"/delay", query, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ProxyDelays tests every proxy in turn. A failed test is recorded in its
// result and does not stop the sweep; only a failure to list proxies or a
// cancelled context ends it early.
func (c *Client) ProxyDelays(ctx context.Context) ([]model.DelayResult, error) {
	names, err := c.ProxyNames(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]model.DelayResult, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r := model.DelayResult{Name: name}
		d, err := c.ProxyDelay(ctx, name)
		if err != nil {
			r.Error = err.Error()
		} else {
			r.Delay = d
		}
		results = append(results, r)
	}
	return results, nil
}

// Providers returns all proxy providers.
func (c *Client) Providers(ctx context.Context) (any, error) {
	return c.getValue(ctx, pathProviders)
}

// Provider returns a single proxy provider.
func (c *Client) Provider(ctx context.Context, name string) (any, error) {
	return c.getValue(ctx, providerPath(name))
}

// SelectProvider issues the provider-scoped analogue of SelectProxy.
func (c *Client) SelectProvider(ctx context.Context, provider, proxy string) error {
	return c.put(ctx, providerPath(provider), map[string]string{"name": proxy})
}

// ProviderHealth triggers a provider health check. The daemon usually
// answers with an empty body, reported as a nil value.
func (c *Client) ProviderHealth(ctx context.Context, name string) (any, error) {
	return c.getValue(ctx, providerPath(name)+"/healthcheck")
}

func proxyPath(name string) string {
	return pathProxies + "/" + url.PathEscape(name)
}

func providerPath(name string) string {
	return pathProviders + "/" + url.PathEscape(name)
}

// do sends one request and returns the response for any 2xx status.
// The caller owns the returned body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, c.transportError(method, path, err)
		}
		body = bytes.NewReader(data)
	}

	target := c.endpoint + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, c.transportError(method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("controller request failed", "method", method, "path", path, "error", err)
		return nil, c.transportError(method, path, err)
	}
	c.logger.Debug("controller request", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, &RequestError{
			Kind:       KindStatus,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}
	return resp, nil
}

// getJSON decodes the first JSON value of the body into out. Streaming
// endpoints are not read past that value. An empty body leaves out untouched.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return c.decodeError(http.MethodGet, path, err)
	}
	return nil
}

func (c *Client) getValue(ctx context.Context, path string) (any, error) {
	var v any
	if err := c.getJSON(ctx, path, nil, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (c *Client) getRaw(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(http.MethodGet, path, err)
	}
	return data, nil
}

func (c *Client) put(ctx context.Context, path string, payload any) error {
	resp, err := c.do(ctx, http.MethodPut, path, nil, payload)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func (c *Client) transportError(method, path string, err error) error {
	return &RequestError{Kind: KindTransport, Method: method, Path: path, Err: err}
}

func (c *Client) decodeError(method, path string, err error) error {
	return &RequestError{Kind: KindDecode, Method: method, Path: path, Err: err}
}
