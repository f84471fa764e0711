// Package woo is a WooCommerce REST API (wc/v3) client covering the calls
// htsmatch needs: list products, list categories, update product metadata
// and a connection check.
package woo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/htsmatch/catalog"
	"github.com/teranos/htsmatch/errors"
	"github.com/teranos/htsmatch/internal/httpclient"
	"github.com/teranos/htsmatch/logger"
)

const (
	apiPath = "/wp-json/wc/v3"

	// MaxPerPage is the largest page size WooCommerce accepts.
	MaxPerPage = 100

	// StatusPublish filters products to published ones.
	StatusPublish = "publish"

	headerTotalPages = "X-WP-TotalPages"
	headerTotal      = "X-WP-Total"

	maxErrorBody = 300
)

// Config configures a Client.
type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	PerPage        int
	PageDelay      time.Duration // minimum spacing between requests
	Timeout        time.Duration
}

// Client talks to one storefront. Requests are issued one at a time and
// spaced by Config.PageDelay.
type Client struct {
	apiURL  string
	user    string
	pass    string
	perPage int
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

// New creates a client for cfg.BaseURL.
func New(cfg Config, log *zap.SugaredLogger) (*Client, error) {
	httpClient, err := httpclient.New(cfg.BaseURL, httpclient.Options{Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}

	perPage := cfg.PerPage
	if perPage <= 0 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	limit := rate.Inf
	if cfg.PageDelay > 0 {
		limit = rate.Every(cfg.PageDelay)
	}

	user, pass := credentials(cfg.ConsumerKey, cfg.ConsumerSecret)
	return &Client{
		apiURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/") + apiPath,
		user:    user,
		pass:    pass,
		perPage: perPage,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.OrNop(log),
	}, nil
}

// credentials returns the basic-auth pair. Keys starting with "ck_" are REST
// API keys; anything else is a WordPress user with an application password,
// which WordPress displays in space-separated groups.
func credentials(key, secret string) (string, string) {
	if strings.HasPrefix(key, "ck_") {
		return key, secret
	}
	return key, strings.ReplaceAll(secret, " ", "")
}

// ListOptions selects one page of products.
type ListOptions struct {
	Page     int    // 1-based; 0 means 1
	PerPage  int    // 0 means the client default
	Status   string // empty means any status
	Category int64  // 0 means any category
}

// Page is one page of products.
type Page struct {
	Products   []catalog.Product
	Page       int
	TotalPages int
	Total      int
}

// ListProducts fetches a single page of products.
func (c *Client) ListProducts(ctx context.Context, opts ListOptions) (*Page, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage <= 0 || perPage > MaxPerPage {
		perPage = c.perPage
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Category != 0 {
		q.Set("category", strconv.FormatInt(opts.Category, 10))
	}

	var products []catalog.Product
	header, err := c.do(ctx, http.MethodGet, "/products", q, nil, &products)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list products page %d", page)
	}

	return &Page{
		Products:   products,
		Page:       page,
		TotalPages: headerInt(header, headerTotalPages, page),
		Total:      headerInt(header, headerTotal, len(products)),
	}, nil
}

// FetchOptions controls FetchProducts.
type FetchOptions struct {
	Categories []int64 // empty means all products
	Limit      int     // 0 means no limit
	MaxPages   int     // per category; 0 means all pages
}

// FetchProducts pages through published products, category by category,
// keeping first-seen order and dropping products already returned for an
// earlier category.
func (c *Client) FetchProducts(ctx context.Context, opts FetchOptions) ([]catalog.Product, error) {
	categories := opts.Categories
	if len(categories) == 0 {
		categories = []int64{0}
	}

	seen := make(map[int64]bool)
	var out []catalog.Product

	for _, category := range categories {
		for page := 1; ; page++ {
			if opts.MaxPages > 0 && page > opts.MaxPages {
				break
			}

			result, err := c.ListProducts(ctx, ListOptions{Page: page, Status: StatusPublish, Category: category})
			if err != nil {
				return out, err
			}

			for _, p := range result.Products {
				if seen[p.ID] {
					continue
				}
				seen[p.ID] = true
				out = append(out, p)
				if opts.Limit > 0 && len(out) >= opts.Limit {
					return out, nil
				}
			}

			c.logger.Debugw("Fetched product page",
				logger.FieldPage, page,
				"category", category,
				logger.FieldCount, len(result.Products),
				"total_pages", result.TotalPages,
			)

			if len(result.Products) == 0 || page >= result.TotalPages {
				break
			}
		}
	}
	return out, nil
}

// ListCategories returns every product category ordered by name.
func (c *Client) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var all []catalog.Category
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(MaxPerPage))
		q.Set("orderby", "name")
		q.Set("order", "asc")

		var batch []catalog.Category
		header, err := c.do(ctx, http.MethodGet, "/products/categories", q, nil, &batch)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list categories page %d", page)
		}
		all = append(all, batch...)

		if len(batch) == 0 || page >= headerInt(header, headerTotalPages, page) {
			return all, nil
		}
	}
}

type updateRequest struct {
	MetaData []catalog.MetaEntry `json:"meta_data"`
}

// UpdateProduct writes meta entries to product id. Other product fields are untouched.
func (c *Client) UpdateProduct(ctx context.Context, id int64, meta []catalog.MetaEntry) error {
	path := "/products/" + strconv.FormatInt(id, 10)
	if _, err := c.do(ctx, http.MethodPut, path, nil, updateRequest{MetaData: meta}, nil); err != nil {
		return errors.Wrapf(err, "failed to update product %d", id)
	}
	return nil
}

// SystemStatus is the subset of /system_status shown by `htsmatch check`.
type SystemStatus struct {
	Environment struct {
		SiteURL   string `json:"site_url"`
		HomeURL   string `json:"home_url"`
		WCVersion string `json:"version"`
		WPVersion string `json:"wp_version"`
	} `json:"environment"`
}

// Ping verifies the URL and credentials.
func (c *Client) Ping(ctx context.Context) (*SystemStatus, error) {
	var status SystemStatus
	if _, err := c.do(ctx, http.MethodGet, "/system_status", nil, nil, &status); err != nil {
		return nil, errors.Wrap(err, "storefront connection check failed")
	}
	return &status, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) (http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := c.apiURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.SetBasicAuth(c.user, c.pass)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "%s %s", method, path), errors.ErrUnavailable)
	}
	defer resp.Body.Close()

	c.logger.Debugw("Storefront request",
		"method", method,
		logger.FieldPath, path,
		logger.FieldStatus, resp.StatusCode,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := errors.Newf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
		if resp.StatusCode == http.StatusNotFound {
			return resp.Header, errors.Mark(err, errors.ErrNotFound)
		}
		return resp.Header, errors.Mark(err, errors.ErrUnavailable)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, errors.Wrapf(err, "decode %s %s response", method, path)
		}
	}
	return resp.Header, nil
}

func headerInt(h http.Header, key string, fallback int) int {
	if h == nil {
		return fallback
	}
	n, err := strconv.Atoi(h.Get(key))
	if err != nil {
		return fallback
	}
	return n
}

// String identifies the client in logs.
func (c *Client) String() string {
	return fmt.Sprintf("woo(%s)", c.apiURL)
}
