package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/hyperjump/kurabe/internal/config"
	"github.com/hyperjump/kurabe/internal/embedding"
	"github.com/hyperjump/kurabe/internal/indexer"
	"github.com/hyperjump/kurabe/internal/keyword"
	"github.com/hyperjump/kurabe/internal/models"
	"github.com/hyperjump/kurabe/internal/remote"
	"github.com/hyperjump/kurabe/internal/rerank"
	"github.com/hyperjump/kurabe/internal/vector"
	"go.uber.org/zap"
)

// Factory builds the adapters of a run. The runner calls each method only
// when the pipeline has the matching step.
type Factory interface {
	Embedder(ctx context.Context, vs *config.VendorSet) (embedding.Embedder, error)
	// VectorRetriever may embed the whole catalog with emb.
	VectorRetriever(ctx context.Context, vs *config.VendorSet, docs []*models.Document, emb embedding.Embedder) (vector.Retriever, error)
	LexicalRetriever(ctx context.Context, vs *config.VendorSet, docs []*models.Document) (keyword.Retriever, error)
	Reranker(ctx context.Context, vs *config.VendorSet) (rerank.Reranker, error)
}

// DefaultFactory builds real adapters from vendor configuration, resolving
// endpoints and keys from the environment.
type DefaultFactory struct {
	Getenv        config.Getenv
	Logger        *zap.Logger
	RemoteOptions []remote.Option
}

// NewDefaultFactory returns a factory that reads the process environment.
func NewDefaultFactory(logger *zap.Logger) *DefaultFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultFactory{Getenv: os.Getenv, Logger: logger}
}

func (f *DefaultFactory) client(provider string) *remote.Client {
	opts := append([]remote.Option{remote.WithLogger(f.Logger)}, f.RemoteOptions...)
	return remote.NewClient(provider, opts...)
}

// Embedder builds the configured embedding provider behind a query cache.
func (f *DefaultFactory) Embedder(ctx context.Context, vs *config.VendorSet) (embedding.Embedder, error) {
	ec := vs.Embedding
	provider, err := embedding.ParseProvider(ec.Provider)
	if err != nil {
		return nil, err
	}

	var inner embedding.Embedder
	switch provider {
	case embedding.ProviderMock:
		inner = embedding.NewMockEmbedder(ec.Dim)
	case embedding.ProviderOpenAI:
		inner, err = embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:     ec.APIKey(f.Getenv),
			BaseURL:    ec.BaseURL(f.Getenv),
			Model:      ec.Model,
			HTTPClient: f.client("openai").HTTPClient(),
		})
	case embedding.ProviderGoogle:
		inner, err = embedding.NewGoogleEmbedder(ctx, embedding.GoogleConfig{
			APIKey:               ec.APIKey(f.Getenv),
			BaseURL:              ec.BaseURL(f.Getenv),
			Model:                ec.Model,
			OutputDimensionality: ec.OutputDimensionality,
			HTTPClient:           f.client("google").HTTPClient(),
		})
	case embedding.ProviderONNX:
		inner, err = embedding.NewONNXEmbedder(embedding.ONNXConfig{
			ModelPath:   ec.ModelPath,
			LibraryPath: ec.LibraryPath,
			Dimensions:  ec.Dim,
			MaxTokens:   ec.MaxTokens,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s embedder: %w", provider, err)
	}
	return embedding.NewCachedEmbedder(inner, ec.QueryCacheSize)
}

// VectorRetriever builds Qdrant or, for the local and faiss providers, embeds
// the whole catalog once and indexes it in process.
func (f *DefaultFactory) VectorRetriever(ctx context.Context, vs *config.VendorSet, docs []*models.Document, emb embedding.Embedder) (vector.Retriever, error) {
	vc := vs.VectorDB
	provider, err := vector.ParseProviderType(vc.Provider)
	if err != nil {
		return nil, err
	}
	if provider == vector.ProviderQdrant {
		url := vc.Endpoint(f.Getenv)
		if url == "" {
			return nil, fmt.Errorf("vector_db.provider=qdrant requires %s to be set", envName(vc.EndpointEnv))
		}
		return vector.NewQdrant(vector.QdrantConfig{
			URL:        url,
			APIKey:     vc.APIKey(f.Getenv),
			Collection: vc.Index,
		}, f.client("qdrant"))
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.FullText()
	}
	vecs, err := embedding.EmbedDocuments(ctx, emb, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed catalog: %w", err)
	}
	if provider == vector.ProviderFAISS {
		idx, err := vector.BuildFAISSIndex(docs, vecs)
		if err != nil {
			return nil, err
		}
		return idx, nil
	}
	return vector.BuildMemoryIndex(docs, vecs)
}

// LexicalRetriever builds the configured BM25 provider.
func (f *DefaultFactory) LexicalRetriever(ctx context.Context, vs *config.VendorSet, docs []*models.Document) (keyword.Retriever, error) {
	bc := vs.BM25
	provider, err := keyword.ParseProviderType(bc.Provider)
	if err != nil {
		return nil, err
	}
	switch provider {
	case keyword.ProviderElastic:
		url := bc.Endpoint(f.Getenv)
		if url == "" {
			return nil, fmt.Errorf("bm25.provider=elastic requires %s to be set", envName(bc.EndpointEnv))
		}
		return keyword.NewElastic(keyword.ElasticConfig{
			BaseURL:    url,
			Index:      bc.Index,
			APIKey:     bc.APIKey(f.Getenv),
			AuthHeader: bc.AuthHeader(f.Getenv),
		}, docs, f.client("elastic"))
	case keyword.ProviderBleve:
		return keyword.NewBleveIndex(docs, keyword.BleveOptions{
			TitleBoost: bc.TitleBoost,
			Fuzziness:  bc.Fuzziness,
		})
	default:
		return keyword.NewBM25(docs), nil
	}
}

// Reranker builds the configured reranker.
func (f *DefaultFactory) Reranker(ctx context.Context, vs *config.VendorSet) (rerank.Reranker, error) {
	rc := vs.Rerank
	provider, err := rerank.ParseProvider(rc.Provider)
	if err != nil {
		return nil, err
	}
	if provider == rerank.ProviderCohere {
		return rerank.NewCohere(rerank.CohereConfig{
			APIKey:  rc.APIKey(f.Getenv),
			BaseURL: rc.Endpoint(f.Getenv),
			Model:   rc.Model,
		}, f.client("cohere"))
	}
	return rerank.NewOverlap(), nil
}

// Indexer builds a remote indexer for the Qdrant and Elasticsearch stores of
// vs. The returned embedder, when non-nil, must be closed by the caller.
func (f *DefaultFactory) Indexer(ctx context.Context, vs *config.VendorSet, batchSize int) (*indexer.Indexer, embedding.Embedder, error) {
	opts := []indexer.IndexerOption{indexer.WithLogger(f.Logger), indexer.WithBatchSize(batchSize)}
	var emb embedding.Embedder

	if vs.VectorDB.Provider == string(vector.ProviderQdrant) {
		url := vs.VectorDB.Endpoint(f.Getenv)
		if url == "" {
			return nil, nil, fmt.Errorf("vector_db.provider=qdrant requires %s to be set", envName(vs.VectorDB.EndpointEnv))
		}
		q, err := vector.NewQdrant(vector.QdrantConfig{
			URL:        url,
			APIKey:     vs.VectorDB.APIKey(f.Getenv),
			Collection: vs.VectorDB.Index,
		}, f.client("qdrant"))
		if err != nil {
			return nil, nil, err
		}
		emb, err = f.Embedder(ctx, vs)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, indexer.WithVectorStore(q, emb))
	}

	if vs.BM25.Provider == string(keyword.ProviderElastic) {
		url := vs.BM25.Endpoint(f.Getenv)
		if url == "" {
			if emb != nil {
				_ = emb.Close()
			}
			return nil, nil, fmt.Errorf("bm25.provider=elastic requires %s to be set", envName(vs.BM25.EndpointEnv))
		}
		es, err := keyword.NewElastic(keyword.ElasticConfig{
			BaseURL:    url,
			Index:      vs.BM25.Index,
			APIKey:     vs.BM25.APIKey(f.Getenv),
			AuthHeader: vs.BM25.AuthHeader(f.Getenv),
		}, nil, f.client("elastic"))
		if err != nil {
			if emb != nil {
				_ = emb.Close()
			}
			return nil, nil, err
		}
		opts = append(opts, indexer.WithLexicalStore(es))
	}

	if emb == nil && vs.BM25.Provider != string(keyword.ProviderElastic) {
		return nil, nil, fmt.Errorf("vendor set %s: %w (needs vector_db.provider=qdrant or bm25.provider=elastic)", vs.ID, indexer.ErrNoTargets)
	}
	return indexer.NewIndexer(opts...), emb, nil
}

func envName(name string) string {
	if name == "" {
		return "an endpoint_env variable"
	}
	return name
}
