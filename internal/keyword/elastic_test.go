package keyword

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kurabe/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizationHeader(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		apiKey     string
		want       string
	}{
		{"explicit header wins", "Bearer tok", "key", "Bearer tok"},
		{"bare key gets ApiKey scheme", "", "abc", "ApiKey abc"},
		{"key with scheme kept", "", "Basic dXNlcjpwdw==", "Basic dXNlcjpwdw=="},
		{"scheme match is case-insensitive", "", "apikey xyz", "apikey xyz"},
		{"nothing configured", "  ", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AuthorizationHeader(tt.authHeader, tt.apiKey))
		})
	}
}

func TestElastic_Query(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/_search", r.URL.Path)
		assert.Equal(t, "ApiKey k1", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(3), body["size"])
		assert.Equal(t, false, body["track_total_hits"])
		match := body["query"].(map[string]any)["match"].(map[string]any)
		assert.Equal(t, "red shoe", match["bm25_text"].(map[string]any)["query"])

		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_id":"d3","_score":4.5},
			{"_id":"","_score":3.0},
			{"_id":"d1","_score":2.0}
		]}}`))
	}))
	defer srv.Close()

	es, err := NewElastic(ElasticConfig{BaseURL: srv.URL + "/", APIKey: "k1"}, testDocs(), nil)
	require.NoError(t, err)

	got, err := es.Query(context.Background(), "  red shoe ", 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d3", got[0].DocID)
	assert.Equal(t, 4.5, got[0].Score)
	assert.Equal(t, 1, got[0].Extra["rank"])
	assert.Equal(t, "d1", got[1].DocID)
	assert.Equal(t, 2, got[1].Extra["rank"])
}

func TestElastic_EmptyQueryDoesNotCallServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called for an empty query")
	}))
	defer srv.Close()

	es, err := NewElastic(ElasticConfig{BaseURL: srv.URL}, testDocs(), nil)
	require.NoError(t, err)
	got, err := es.Query(context.Background(), "  ", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d1", got[0].DocID)
	assert.Equal(t, 0.0, got[0].Score)
}

func TestElastic_PermanentErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := remote.NewClient("elastic", remote.WithSleep(func(context.Context, time.Duration) error { return nil }))
	es, err := NewElastic(ElasticConfig{BaseURL: srv.URL, Index: "idx"}, testDocs(), client)
	require.NoError(t, err)

	_, err = es.Query(context.Background(), "shoe", 5)
	var perr *remote.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
}

func TestNewElastic_RequiresBaseURL(t *testing.T) {
	_, err := NewElastic(ElasticConfig{}, nil, nil)
	assert.Error(t, err)
}

func TestElastic_EnsureIndex(t *testing.T) {
	var created map[string]any
	exists := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/catalog", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			if !exists {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(`{"catalog":{}}`))
		case http.MethodPut:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			exists = true
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		}
	}))
	defer srv.Close()

	es, err := NewElastic(ElasticConfig{BaseURL: srv.URL, Index: "catalog"}, nil, nil)
	require.NoError(t, err)

	ok, err := es.EnsureIndex(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	props := created["mappings"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "keyword", props["doc_id"].(map[string]any)["type"])
	assert.Contains(t, props, "bm25_text")

	ok, err = es.EnsureIndex(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "second call finds the index")
}

func TestElastic_Bulk(t *testing.T) {
	var lines []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_bulk", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("refresh"))
		assert.Equal(t, "application/x-ndjson", r.Header.Get("Content-Type"))
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		_, _ = w.Write([]byte(`{"errors":false,"items":[]}`))
	}))
	defer srv.Close()

	es, err := NewElastic(ElasticConfig{BaseURL: srv.URL}, nil, nil)
	require.NoError(t, err)
	err = es.Bulk(context.Background(), []ElasticDoc{
		{DocID: "P1", Title: "Blue Pen", Text: "ink", BM25Text: "Blue Pen ink"},
		{DocID: "P2", Title: "Marker"},
	})
	require.NoError(t, err)

	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"index":{"_index":"products","_id":"P1"}}`, lines[0])
	var doc ElasticDoc
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &doc))
	assert.Equal(t, "Blue Pen ink", doc.BM25Text)
	assert.True(t, strings.Contains(lines[2], `"_id":"P2"`))
}

func TestElastic_BulkItemErrorsAreFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":true,"items":[
			{"index":{"_id":"P1","status":201}},
			{"index":{"_id":"P2","status":400,"error":{"type":"mapper_parsing_exception"}}}]}`))
	}))
	defer srv.Close()

	es, err := NewElastic(ElasticConfig{BaseURL: srv.URL}, nil, nil)
	require.NoError(t, err)
	err = es.Bulk(context.Background(), []ElasticDoc{{DocID: "P1"}, {DocID: "P2"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "P2")
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}

func TestElastic_BulkEmptyDoesNotCallServer(t *testing.T) {
	es, err := NewElastic(ElasticConfig{BaseURL: "http://127.0.0.1:1"}, nil, nil)
	require.NoError(t, err)
	assert.NoError(t, es.Bulk(context.Background(), nil))
}
