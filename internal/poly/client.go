package poly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sigma-quantiphi/polymarket-pandas/logger"
)

const (
	defaultGammaURL = "https://gamma-api.polymarket.com/"
	defaultDataURL  = "https://data-api.polymarket.com/"
	defaultCLOBURL  = "https://clob.polymarket.com/"
)

// Config carries the client endpoints, credentials and rate limit.
type Config struct {
	GammaURL          string
	DataURL           string
	CLOBURL           string
	Credentials       Credentials
	RequestsPerSecond float64
	BurstSize         int
	Timeout           time.Duration
}

// Client talks to the Gamma, Data and CLOB APIs. Safe for concurrent use.
type Client struct {
	http     *http.Client
	gammaURL string
	dataURL  string
	clobURL  string
	creds    Credentials
	limiter  *rate.Limiter
	log      *logger.Log
	// now is swapped in tests to pin signature timestamps.
	now func() time.Time
}

// NewClient builds a client with conservative defaults: 5 rps, burst 1,
// 30s timeout.
func NewClient(cfg Config) *Client {
	if cfg.GammaURL == "" {
		cfg.GammaURL = defaultGammaURL
	}
	if cfg.DataURL == "" {
		cfg.DataURL = defaultDataURL
	}
	if cfg.CLOBURL == "" {
		cfg.CLOBURL = defaultCLOBURL
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		gammaURL: strings.TrimSuffix(cfg.GammaURL, "/") + "/",
		dataURL:  strings.TrimSuffix(cfg.DataURL, "/") + "/",
		clobURL:  strings.TrimSuffix(cfg.CLOBURL, "/") + "/",
		creds:    cfg.Credentials,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		log:      logger.GetLogger(),
		now:      time.Now,
	}
}

type apiHost int

const (
	gammaAPI apiHost = iota
	dataAPI
	clobAPI
)

func (c *Client) baseURL(host apiHost) string {
	switch host {
	case dataAPI:
		return c.dataURL
	case clobAPI:
		return c.clobURL
	default:
		return c.gammaURL
	}
}

// request performs one API call and decodes the JSON response into out.
// body, when non-nil, is sent as compact JSON. Private requests carry the
// signed headers over the exact body bytes.
func (c *Client) request(ctx context.Context, host apiHost, method, path string, q Query, body any, private bool, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	u := c.baseURL(host) + strings.TrimPrefix(path, "/")
	if q != nil {
		if encoded := q.Encode().Encode(); encoded != "" {
			u += "?" + encoded
		}
	}

	var reader io.Reader
	if bodyBytes != nil {
		reader = bytes.NewReader(bodyBytes)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if bodyBytes != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if private {
		headers, err := c.creds.l2Headers(method, "/"+strings.TrimPrefix(path, "/"), bodyBytes, c.now())
		if err != nil {
			return err
		}
		// Set directly to keep the POLY_* header names uppercase on the wire.
		for k, v := range headers {
			req.Header[k] = []string{v}
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		c.log.WithComponent("poly_client").WithFields(logger.Fields{"path": path}).
			Warn("rate limited by server")
		return fmt.Errorf("%s %s: rate limited (429)", method, path)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, res.StatusCode, string(payload))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) getRecords(ctx context.Context, host apiHost, path string, q Query) ([]map[string]any, error) {
	var records []map[string]any
	if err := c.request(ctx, host, http.MethodGet, path, q, nil, false, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) getRecord(ctx context.Context, host apiHost, path string, q Query) (map[string]any, error) {
	var record map[string]any
	if err := c.request(ctx, host, http.MethodGet, path, q, nil, false, &record); err != nil {
		return nil, err
	}
	return record, nil
}
