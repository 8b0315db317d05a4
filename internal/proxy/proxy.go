package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Proxy is one CORS-forwarding endpoint in the fallback chain. BuildURL wraps
// the target URL in the proxy's request format; Extract pulls the target body
// out of the proxy's response shape (nil means the body is returned as-is).
type Proxy struct {
	Name     string
	BuildURL func(target string) string
	Extract  func(body []byte) (string, error)
}

// ErrAllProxiesFailed is returned when every proxy in the chain failed. It
// carries the last underlying failure.
type ErrAllProxiesFailed struct {
	LastErr error
}

func (e *ErrAllProxiesFailed) Error() string {
	if e.LastErr == nil {
		return "all proxies failed"
	}
	return fmt.Sprintf("all proxies failed, last error: %v", e.LastErr)
}

func (e *ErrAllProxiesFailed) Unwrap() error { return e.LastErr }

// allOriginsEnvelope is the JSON wrapper returned by api.allorigins.win.
type allOriginsEnvelope struct {
	Contents string `json:"contents"`
}

// DefaultProxies is the production chain, tried strictly in order. Public
// proxies are unreliable; corsproxy.io rate-limits aggressively (429) and
// allorigins is often blocked by major sites, so each one is a best effort.
func DefaultProxies() []Proxy {
	return []Proxy{
		{
			Name: "corsproxy.io",
			BuildURL: func(target string) string {
				return "https://corsproxy.io/?" + url.QueryEscape(target)
			},
		},
		{
			Name: "codetabs",
			BuildURL: func(target string) string {
				return "https://api.codetabs.com/v1/proxy?quest=" + url.QueryEscape(target)
			},
		},
		{
			Name: "allorigins",
			BuildURL: func(target string) string {
				return fmt.Sprintf("https://api.allorigins.win/get?url=%s&timestamp=%d",
					url.QueryEscape(target), time.Now().UnixMilli())
			},
			Extract: func(body []byte) (string, error) {
				var envelope allOriginsEnvelope
				if err := json.Unmarshal(body, &envelope); err != nil {
					return "", fmt.Errorf("failed to decode allorigins envelope: %w", err)
				}
				return envelope.Contents, nil
			},
		},
	}
}

// Fetcher fetches third-party pages through an ordered proxy chain.
type Fetcher struct {
	client  *resty.Client
	proxies []Proxy
}

// NewFetcher creates a fetcher over the default proxy chain.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client:  resty.New().SetTimeout(30 * time.Second),
		proxies: DefaultProxies(),
	}
}

// NewFetcherWithProxies creates a fetcher over a custom proxy chain. Used by
// tests and by callers that need a private forwarding endpoint.
func NewFetcherWithProxies(client *resty.Client, proxies []Proxy) *Fetcher {
	if client == nil {
		client = resty.New().SetTimeout(30 * time.Second)
	}
	return &Fetcher{client: client, proxies: proxies}
}

// Fetch retrieves the raw body of targetURL through the proxy chain. Proxies
// are tried strictly in declared order, never concurrently; the first success
// wins and no retries happen within a single proxy. A non-2xx status or an
// empty extracted body counts as a failure and falls through to the next
// proxy. When the whole chain is exhausted, ErrAllProxiesFailed is returned
// with the last failure attached.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (string, error) {
	var lastErr error

	for _, p := range f.proxies {
		proxyURL := p.BuildURL(targetURL)
		logrus.Debugf("Trying proxy %s for %s", p.Name, targetURL)

		resp, err := f.client.R().SetContext(ctx).Get(proxyURL)
		if err != nil {
			logrus.Warnf("Proxy %s failed: %v", p.Name, err)
			lastErr = err
			continue
		}

		if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
			lastErr = fmt.Errorf("proxy %s returned status %d", p.Name, resp.StatusCode())
			logrus.Warnf("Proxy failed: %v", lastErr)
			continue
		}

		body := string(resp.Body())
		if p.Extract != nil {
			body, err = p.Extract(resp.Body())
			if err != nil {
				logrus.Warnf("Proxy %s failed: %v", p.Name, err)
				lastErr = err
				continue
			}
		}

		if body == "" {
			lastErr = fmt.Errorf("empty response from proxy %s", p.Name)
			logrus.Warnf("Proxy failed: %v", lastErr)
			continue
		}

		return body, nil
	}

	return "", &ErrAllProxiesFailed{LastErr: lastErr}
}
