package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/kurabe/internal/config"
	"github.com/hyperjump/kurabe/internal/embedding"
	"github.com/hyperjump/kurabe/internal/indexer"
	"github.com/hyperjump/kurabe/internal/keyword"
	"github.com/hyperjump/kurabe/internal/models"
	"github.com/hyperjump/kurabe/internal/rerank"
	"github.com/hyperjump/kurabe/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func factoryWithEnv(env map[string]string) *DefaultFactory {
	f := NewDefaultFactory(nil)
	f.Getenv = func(k string) string { return env[k] }
	return f
}

func vendorSet(mut func(vs *config.VendorSet)) *config.VendorSet {
	vs := &config.VendorSet{ID: "test"}
	mut(vs)
	config.ApplyVendorDefaults(vs)
	return vs
}

var factoryDocs = []*models.Document{
	{DocID: "a", Title: "blue pen", Text: "ink"},
	{DocID: "b", Title: "red marker", Text: "felt"},
}

func TestDefaultFactory_LocalDense(t *testing.T) {
	ctx := context.Background()
	f := factoryWithEnv(nil)
	vs := vendorSet(func(*config.VendorSet) {})

	emb, err := f.Embedder(ctx, vs)
	require.NoError(t, err)
	defer emb.Close()
	assert.Equal(t, embedding.DefaultMockDimensions, emb.Dimensions())

	r, err := f.VectorRetriever(ctx, vs, factoryDocs, emb)
	require.NoError(t, err)
	mem, ok := r.(*vector.MemoryIndex)
	require.True(t, ok)
	assert.Equal(t, 2, mem.Size())
}

func TestDefaultFactory_QdrantRequiresEndpoint(t *testing.T) {
	ctx := context.Background()
	vs := vendorSet(func(vs *config.VendorSet) {
		vs.VectorDB = config.VectorDBConfig{Provider: "qdrant", EndpointEnv: "QDRANT_URL"}
	})

	_, err := factoryWithEnv(nil).VectorRetriever(ctx, vs, factoryDocs, embedding.NewMockEmbedder(4))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QDRANT_URL")

	r, err := factoryWithEnv(map[string]string{"QDRANT_URL": "http://localhost:6333"}).VectorRetriever(ctx, vs, factoryDocs, nil)
	require.NoError(t, err)
	assert.Equal(t, "qdrant", r.Name())
}

func TestDefaultFactory_Lexical(t *testing.T) {
	ctx := context.Background()

	r, err := factoryWithEnv(nil).LexicalRetriever(ctx, vendorSet(func(*config.VendorSet) {}), factoryDocs)
	require.NoError(t, err)
	_, ok := r.(*keyword.BM25)
	assert.True(t, ok)

	bleveVS := vendorSet(func(vs *config.VendorSet) { vs.BM25.Provider = "bleve" })
	r, err = factoryWithEnv(nil).LexicalRetriever(ctx, bleveVS, factoryDocs)
	require.NoError(t, err)
	bi, ok := r.(*keyword.BleveIndex)
	require.True(t, ok)
	defer bi.Close()

	elasticVS := vendorSet(func(vs *config.VendorSet) {
		vs.BM25 = config.BM25Config{Provider: "elastic", EndpointEnv: "ELASTIC_URL"}
	})
	_, err = factoryWithEnv(nil).LexicalRetriever(ctx, elasticVS, factoryDocs)
	assert.Error(t, err)
	r, err = factoryWithEnv(map[string]string{"ELASTIC_URL": "http://localhost:9200"}).LexicalRetriever(ctx, elasticVS, factoryDocs)
	require.NoError(t, err)
	assert.Equal(t, "elastic", r.Name())
}

func TestDefaultFactory_Reranker(t *testing.T) {
	ctx := context.Background()

	r, err := factoryWithEnv(nil).Reranker(ctx, vendorSet(func(*config.VendorSet) {}))
	require.NoError(t, err)
	_, ok := r.(*rerank.Overlap)
	assert.True(t, ok)

	cohereVS := vendorSet(func(vs *config.VendorSet) { vs.Rerank.Provider = "cohere" })
	_, err = factoryWithEnv(nil).Reranker(ctx, cohereVS)
	assert.Error(t, err, "cohere without a key must fail at construction")

	r, err = factoryWithEnv(map[string]string{"COHERE_API_KEY": "k"}).Reranker(ctx, cohereVS)
	require.NoError(t, err)
	assert.Equal(t, "cohere", r.Name())
}

func TestDefaultFactory_OpenAIRequiresKey(t *testing.T) {
	vs := vendorSet(func(vs *config.VendorSet) { vs.Embedding.Provider = "openai" })
	_, err := factoryWithEnv(nil).Embedder(context.Background(), vs)
	assert.Error(t, err)

	emb, err := factoryWithEnv(map[string]string{"OPENAI_API_KEY": "sk"}).Embedder(context.Background(), vs)
	require.NoError(t, err)
	assert.NoError(t, emb.Close())
}

func TestDefaultFactory_Indexer(t *testing.T) {
	ctx := context.Background()

	_, _, err := factoryWithEnv(nil).Indexer(ctx, vendorSet(func(*config.VendorSet) {}), 10)
	assert.True(t, errors.Is(err, indexer.ErrNoTargets), "local providers have nothing to index")

	remoteVS := vendorSet(func(vs *config.VendorSet) {
		vs.VectorDB = config.VectorDBConfig{Provider: "qdrant", EndpointEnv: "QDRANT_URL"}
		vs.BM25 = config.BM25Config{Provider: "elastic", EndpointEnv: "ELASTIC_URL"}
	})
	_, _, err = factoryWithEnv(map[string]string{"QDRANT_URL": "http://q"}).Indexer(ctx, remoteVS, 10)
	assert.ErrorContains(t, err, "ELASTIC_URL")

	idx, emb, err := factoryWithEnv(map[string]string{"QDRANT_URL": "http://q", "ELASTIC_URL": "http://e"}).Indexer(ctx, remoteVS, 10)
	require.NoError(t, err)
	require.NotNil(t, idx)
	require.NotNil(t, emb)
	assert.NoError(t, emb.Close())
}
