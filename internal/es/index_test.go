package es

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
)

func fakeCluster(t *testing.T, handler http.HandlerFunc) *ProductIndex {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return &ProductIndex{Client: client, Index: "products"}
}

func TestSearchQuery(t *testing.T) {
	t.Parallel()

	q := searchQuery("mug", 10, 5)
	b, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"query": {"multi_match": {"query": "mug", "fields": ["name^2", "description"], "fuzziness": "AUTO"}},
		"_source": ["id"],
		"from": 10,
		"size": 5
	}`, string(b))
}

func TestSearch_ReturnsIDsInScoreOrder(t *testing.T) {
	t.Parallel()

	var gotPath string
	idx := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"hits":{"total":{"value":12},"hits":[{"_source":{"id":9}},{"_source":{"id":3}}]}}`)
	})

	total, ids, err := idx.Search(context.Background(), "mug", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, "/products/_search", gotPath)
	assert.EqualValues(t, 12, total)
	assert.Equal(t, []uint{9, 3}, ids)
}

func TestIndexProduct_SendsDocument(t *testing.T) {
	t.Parallel()

	var path string
	var doc map[string]any
	idx := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &doc)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"result":"created"}`)
	})

	err := idx.IndexProduct(context.Background(), models.Product{ID: 4, Name: "Lamp", Price: decimal.RequireFromString("19.9")})
	require.NoError(t, err)
	assert.Equal(t, "/products/_doc/4", path)
	assert.Equal(t, "Lamp", doc["name"])
	assert.Equal(t, "19.90", doc["price"])
}

func TestDeleteProduct_MissingIsFine(t *testing.T) {
	t.Parallel()

	idx := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"result":"not_found"}`)
	})
	assert.NoError(t, idx.DeleteProduct(context.Background(), 4))
}

func TestSearch_ClusterError(t *testing.T) {
	t.Parallel()

	idx := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"boom"}`)
	})
	_, _, err := idx.Search(context.Background(), "x", 0, 1)
	assert.Error(t, err)
}
