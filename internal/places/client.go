package places

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

// reviewFieldMask limits the place fetch to the fields the review pipeline
// needs.
const reviewFieldMask = "displayName,rating,reviews"

// Client talks to the Google Places API for one configured key.
type Client struct {
	apiKey  string
	baseURL string
	client  *resty.Client
}

// Loader owns the process-wide Places client. Initialization is lazy and
// shared: the first caller triggers it and concurrent callers attach to the
// same in-flight attempt instead of initializing twice. A failed attempt is
// not cached, so a later call retries.
type Loader struct {
	apiKey  string
	baseURL string

	group  singleflight.Group
	mu     sync.RWMutex
	client *Client
}

// NewLoader creates a loader for the given API key.
func NewLoader(apiKey string) *Loader {
	return NewLoaderWithBaseURL(apiKey, defaultBaseURL)
}

// NewLoaderWithBaseURL creates a loader pointed at a custom endpoint. Used by
// tests.
func NewLoaderWithBaseURL(apiKey, baseURL string) *Loader {
	return &Loader{apiKey: apiKey, baseURL: baseURL}
}

// Enabled reports whether a Places API key is configured at all.
func (l *Loader) Enabled() bool {
	return l.apiKey != ""
}

// Load returns the shared client, initializing it on first use.
func (l *Loader) Load(ctx context.Context) (*Client, error) {
	l.mu.RLock()
	client := l.client
	l.mu.RUnlock()
	if client != nil {
		return client, nil
	}

	result, err, _ := l.group.Do("places-client", func() (interface{}, error) {
		if l.apiKey == "" {
			return nil, fmt.Errorf("Places API key not configured")
		}

		client := &Client{
			apiKey:  l.apiKey,
			baseURL: l.baseURL,
			client:  resty.New().SetTimeout(30 * time.Second),
		}

		l.mu.Lock()
		l.client = client
		l.mu.Unlock()

		logrus.Debug("Places client initialized")
		return client, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*Client), nil
}

// LocalizedText is the Places API wrapper around translated strings.
type LocalizedText struct {
	Text string `json:"text"`
}

// AuthorAttribution identifies the author of a Places review.
type AuthorAttribution struct {
	DisplayName string `json:"displayName"`
	URI         string `json:"uri"`
	PhotoURI    string `json:"photoUri"`
}

// Review is one review as returned by the Places API.
type Review struct {
	Name              string            `json:"name"`
	Rating            int               `json:"rating"`
	Text              LocalizedText     `json:"text"`
	AuthorAttribution AuthorAttribution `json:"authorAttribution"`
	PublishTime       string            `json:"publishTime"`
}

// Place is the subset of place fields requested by the review field mask.
type Place struct {
	DisplayName LocalizedText `json:"displayName"`
	Rating      float64       `json:"rating"`
	Reviews     []Review      `json:"reviews"`
}

// FetchReviews fetches the review fields for one place ID.
func (c *Client) FetchReviews(ctx context.Context, placeID string) (*Place, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("X-Goog-Api-Key", c.apiKey).
		SetHeader("X-Goog-FieldMask", reviewFieldMask).
		SetResult(&Place{}).
		Get(fmt.Sprintf("%s/places/%s", c.baseURL, placeID))

	if err != nil {
		return nil, fmt.Errorf("places request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("places API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	place, ok := resp.Result().(*Place)
	if !ok || place == nil {
		return nil, fmt.Errorf("places API returned an unexpected response shape")
	}

	return place, nil
}
