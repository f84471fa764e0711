package woo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/htsmatch/catalog"
	"github.com/teranos/htsmatch/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		BaseURL:        server.URL,
		ConsumerKey:    "ck_test",
		ConsumerSecret: "cs_test",
		PerPage:        2,
		Timeout:        5 * time.Second,
	}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestCredentials(t *testing.T) {
	user, pass := credentials("ck_abc", "cs secret")
	assert.Equal(t, "ck_abc", user)
	assert.Equal(t, "cs secret", pass)

	user, pass = credentials("shopadmin", "abcd efgh ijkl mnop")
	assert.Equal(t, "shopadmin", user)
	assert.Equal(t, "abcdefghijklmnop", pass)
}

func TestListProducts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wc/v3/products", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "ck_test", user)
		assert.Equal(t, "cs_test", pass)

		assert.Equal(t, "3", r.URL.Query().Get("page"))
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))
		assert.Equal(t, "publish", r.URL.Query().Get("status"))
		assert.Equal(t, "17", r.URL.Query().Get("category"))

		w.Header().Set("X-WP-TotalPages", "4")
		w.Header().Set("X-WP-Total", "8")
		w.Write([]byte(`[{
			"id": 42, "sku": "MUG-001", "name": "Stoneware Mug",
			"description": "<p>Hand thrown</p>", "short_description": "",
			"price": "24.00", "weight": "0.4",
			"dimensions": {"length": "10", "width": "8", "height": "9"},
			"categories": [{"id": 17, "name": "Mugs", "slug": "mugs"}],
			"tags": [{"id": 3, "name": "ceramic"}],
			"attributes": [{"id": 1, "name": "Material", "visible": true, "options": ["Stoneware"]}],
			"meta_data": [{"id": 1, "key": "_something", "value": {"nested": true}}]
		}]`))
	})

	page, err := client.ListProducts(context.Background(), ListOptions{Page: 3, Status: StatusPublish, Category: 17})
	require.NoError(t, err)

	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 4, page.TotalPages)
	assert.Equal(t, 8, page.Total)
	require.Len(t, page.Products, 1)

	p := page.Products[0]
	assert.Equal(t, int64(42), p.ID)
	assert.Equal(t, "MUG-001", p.SKU)
	assert.Equal(t, "10", p.Dimensions.Length)
	assert.Equal(t, []string{"Mugs"}, p.CategoryNames())
	require.Len(t, p.Attributes, 1)
	assert.Equal(t, []string{"Stoneware"}, p.Attributes[0].Options)
}

func TestFetchProducts_DedupesAcrossCategories(t *testing.T) {
	pages := map[string][][]int64{
		"10": {{1, 2}, {3}},
		"20": {{3, 4}},
	}

	requests := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		category := r.URL.Query().Get("category")
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		catPages := pages[category]

		w.Header().Set("X-WP-TotalPages", strconv.Itoa(len(catPages)))
		var products []catalog.Product
		for _, id := range catPages[page-1] {
			products = append(products, catalog.Product{ID: id, Name: fmt.Sprintf("P%d", id)})
		}
		writeJSON(t, w, products)
	})

	products, err := client.FetchProducts(context.Background(), FetchOptions{Categories: []int64{10, 20}})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, catalog.IDs(products))
	assert.Equal(t, 3, requests)
}

func TestFetchProducts_LimitAndMaxPages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		w.Header().Set("X-WP-TotalPages", "10")
		writeJSON(t, w, []catalog.Product{{ID: int64(page*10 + 1)}, {ID: int64(page*10 + 2)}})
	})

	limited, err := client.FetchProducts(context.Background(), FetchOptions{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 12, 21}, catalog.IDs(limited))

	paged, err := client.FetchProducts(context.Background(), FetchOptions{MaxPages: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 12, 21, 22}, catalog.IDs(paged))
}

func TestListCategories_Pages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wc/v3/products/categories", r.URL.Path)
		assert.Equal(t, "name", r.URL.Query().Get("orderby"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))

		w.Header().Set("X-WP-TotalPages", "2")
		if r.URL.Query().Get("page") == "1" {
			writeJSON(t, w, []catalog.Category{{ID: 1, Name: "Apparel"}, {ID: 2, Name: "Kitchen"}})
			return
		}
		writeJSON(t, w, []catalog.Category{{ID: 3, Name: "Mugs", Parent: 2, Count: 5}})
	})

	categories, err := client.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 3)
	assert.Equal(t, int64(2), categories[2].Parent)
	assert.Equal(t, 5, categories[2].Count)
}

func TestUpdateProduct(t *testing.T) {
	var got updateRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/wp-json/wc/v3/products/42", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(t, w, map[string]interface{}{"id": 42})
	})

	meta := []catalog.MetaEntry{{Key: catalog.MetaHTSCode, Value: "6912.00.4810"}}
	require.NoError(t, client.UpdateProduct(context.Background(), 42, meta))
	assert.Equal(t, meta, got.MetaData)
}

func TestErrorStatuses(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"code":"woocommerce_rest_product_invalid_id"}`, http.StatusNotFound)
		})
		err := client.UpdateProduct(context.Background(), 7, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrNotFound))
		assert.Contains(t, err.Error(), "failed to update product 7")
		assert.Contains(t, err.Error(), "HTTP 404")
	})

	t.Run("unauthorized", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusUnauthorized)
		})
		_, err := client.Ping(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrUnavailable))
	})

	t.Run("malformed body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>maintenance</html>"))
		})
		_, err := client.ListProducts(context.Background(), ListOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode")
	})
}

func TestPing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wc/v3/system_status", r.URL.Path)
		w.Write([]byte(`{"environment": {"site_url": "https://shop.example.com", "version": "9.1.0", "wp_version": "6.6"}}`))
	})

	status, err := client.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com", status.Environment.SiteURL)
	assert.Equal(t, "9.1.0", status.Environment.WCVersion)
}

func TestRequestsArePaced(t *testing.T) {
	var times []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		times = append(times, time.Now())
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, ConsumerKey: "ck_x", PageDelay: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := client.ListProducts(context.Background(), ListOptions{})
		require.NoError(t, err)
	}

	require.Len(t, times, 3)
	assert.GreaterOrEqual(t, times[2].Sub(times[0]), 90*time.Millisecond)
}

func TestCanceledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.ListProducts(ctx, ListOptions{})
	assert.Error(t, err)
}
