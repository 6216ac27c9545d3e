// Package backend is the client for the publishing REST API the form pages
// submit to.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/eringen/pubforms/forms"
	"github.com/eringen/pubforms/metrics"
)

// Backend endpoints, relative to the base URL.
const (
	PathCreateBlog = "/api/blogs/create/"
	PathCategories = "/api/blogs/category/"
	PathRegister   = "/api/register/"
	PathToken      = "/api/token/"
)

const (
	categoryCacheKey  = "categories"
	categoryCacheSize = 1024 * 1024
	maxResponseSize   = 1 << 20
)

// Client issues single-attempt requests to the backend. It does not retry.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	cache       *freecache.Cache
	categoryTTL time.Duration
	metrics     *metrics.Manager
}

// ClientParams configures a Client.
type ClientParams struct {
	BaseURL    string
	HTTPClient *http.Client
	// CategoryTTL caches the category list for this long. Zero fetches it on
	// every page load.
	CategoryTTL time.Duration
	Metrics     *metrics.Manager
}

// NewHTTPClient returns an http.Client with a traced transport. A zero
// timeout leaves requests bounded only by their context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// NewClient creates a backend client.
func NewClient(params ClientParams) *Client {
	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	c := &Client{
		baseURL:     strings.TrimSuffix(params.BaseURL, "/"),
		httpClient:  httpClient,
		categoryTTL: params.CategoryTTL,
		metrics:     params.Metrics,
	}
	if c.categoryTTL > 0 {
		c.cache = freecache.NewCache(categoryCacheSize)
	}
	return c
}

// TokenPair is the access/refresh pair issued by the token endpoint.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Categories returns the backend category list in display order.
func (c *Client) Categories(ctx context.Context) ([]forms.Category, error) {
	if c.cache != nil {
		if cached, err := c.cache.Get([]byte(categoryCacheKey)); err == nil {
			var m map[string]string
			if err := json.Unmarshal(cached, &m); err == nil {
				c.countCategoryFetch("cache")
				return forms.Categories(m), nil
			}
			log.Errorf("unmarshal cached categories: %s", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+PathCategories, nil)
	if err != nil {
		return nil, err
	}
	status, body, err := c.do(req, "categories")
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, parseAPIError(status, body)
	}

	var m map[string]string
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("unmarshal categories: %w", err)
	}
	c.countCategoryFetch("backend")

	if c.cache != nil {
		if err := c.cache.Set([]byte(categoryCacheKey), body, expireSeconds(c.categoryTTL)); err != nil {
			log.Errorf("cache categories: %s", err)
		}
	}
	return forms.Categories(m), nil
}

// CreateBlog submits a blog record on behalf of the bearer of accessToken.
// Any 2xx status is success; anything else is returned as *APIError.
func (c *Client) CreateBlog(ctx context.Context, accessToken string, b *forms.Blog) error {
	payload := newPayload()
	payload.field(forms.FieldTitle, b.Title)
	payload.field(forms.FieldContent, b.Content)
	payload.field(forms.FieldCategory, b.Category)
	payload.file(forms.FieldImage, b.Image)
	payload.field(forms.FieldAuthor, b.Author)
	if err := payload.close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathCreateBlog, payload.body())
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", payload.contentType())
	req.Header.Set("Authorization", "Bearer "+accessToken)

	status, body, err := c.do(req, "create_blog")
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return parseAPIError(status, body)
	}
	return nil
}

// Register submits a sign-up record. Only status 200 counts as success.
func (c *Client) Register(ctx context.Context, u *forms.SignUp) error {
	payload := newPayload()
	payload.field(forms.FieldUsername, u.Username)
	payload.field(forms.FieldEmail, u.Email)
	payload.field(forms.FieldPassword, u.Password)
	payload.file(forms.FieldPhoto, u.Photo)
	payload.field(forms.FieldBio, u.Bio)
	if err := payload.close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathRegister, payload.body())
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", payload.contentType())

	status, body, err := c.do(req, "register")
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return parseAPIError(status, body)
	}
	return nil
}

// ObtainToken exchanges credentials for a token pair.
func (c *Client) ObtainToken(ctx context.Context, username, password string) (TokenPair, error) {
	reqBody, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return TokenPair{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathToken, bytes.NewReader(reqBody))
	if err != nil {
		return TokenPair{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	status, body, err := c.do(req, "token")
	if err != nil {
		return TokenPair{}, err
	}
	if status != http.StatusOK {
		return TokenPair{}, parseAPIError(status, body)
	}
	var pair TokenPair
	if err := json.Unmarshal(body, &pair); err != nil {
		return TokenPair{}, fmt.Errorf("unmarshal token pair: %w", err)
	}
	if pair.Access == "" {
		return TokenPair{}, fmt.Errorf("token response without access token")
	}
	return pair, nil
}

// do sends req once and returns the status and (size-capped) body.
func (c *Client) do(req *http.Request, endpoint string) (int, []byte, error) {
	begin := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.HistBackendDuration.WithLabelValues(endpoint).Observe(time.Since(begin).Seconds())
		}
	}()

	log.Tracef("backend %s %s", req.Method, req.URL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	return resp.StatusCode, body, nil
}

// expireSeconds converts a TTL to freecache's whole seconds, rounding up
// since 0 means the entry never expires.
func expireSeconds(ttl time.Duration) int {
	return int((ttl + time.Second - 1) / time.Second)
}

func (c *Client) countCategoryFetch(source string) {
	if c.metrics != nil {
		c.metrics.CounterCategoryFetches.WithLabelValues(source).Inc()
	}
}
