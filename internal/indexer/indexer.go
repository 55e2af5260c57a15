// Package indexer pushes a catalog into the remote stores of a vendor set so
// the remote retrievers can honor their doc_id contracts.
package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/kurabe/internal/embedding"
	"github.com/hyperjump/kurabe/internal/keyword"
	"github.com/hyperjump/kurabe/internal/models"
	"github.com/hyperjump/kurabe/internal/vector"
	"go.uber.org/zap"
)

// ErrNoTargets is returned when an indexer has neither a vector nor a lexical store.
var ErrNoTargets = errors.New("no remote index targets configured")

// VectorStore is a remote vector collection. *vector.Qdrant implements it.
type VectorStore interface {
	EnsureCollection(ctx context.Context, dim int) (bool, error)
	Upsert(ctx context.Context, points []vector.Point) error
}

// LexicalStore is a remote lexical index. *keyword.Elastic implements it.
type LexicalStore interface {
	EnsureIndex(ctx context.Context) (bool, error)
	Bulk(ctx context.Context, docs []keyword.ElasticDoc) error
}

// Stats reports what IndexCatalog wrote.
type Stats struct {
	Docs              int  `json:"docs"`
	VectorPoints      int  `json:"vector_points"`
	LexicalDocs       int  `json:"lexical_docs"`
	CollectionCreated bool `json:"collection_created"`
	IndexCreated      bool `json:"index_created"`
}

// Indexer writes catalog documents to a vector store, a lexical store, or both.
type Indexer struct {
	embedder  embedding.Embedder
	vectors   VectorStore
	lexical   LexicalStore
	batchSize int
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for progress output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithBatchSize sets the number of documents per request.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// WithVectorStore indexes document embeddings from emb into store.
func WithVectorStore(store VectorStore, emb embedding.Embedder) IndexerOption {
	return func(idx *Indexer) {
		idx.vectors = store
		idx.embedder = emb
	}
}

// WithLexicalStore indexes documents into store.
func WithLexicalStore(store LexicalStore) IndexerOption {
	return func(idx *Indexer) {
		idx.lexical = store
	}
}

// NewIndexer creates an indexer.
func NewIndexer(opts ...IndexerOption) *Indexer {
	idx := &Indexer{batchSize: DefaultBatchSize, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexCatalog writes docs to every configured store. The vector collection is
// created on first use with the dimension of the first embedded batch.
func (idx *Indexer) IndexCatalog(ctx context.Context, docs []*models.Document) (*Stats, error) {
	if idx.vectors == nil && idx.lexical == nil {
		return nil, ErrNoTargets
	}
	if idx.vectors != nil && idx.embedder == nil {
		return nil, fmt.Errorf("vector store requires an embedder")
	}
	stats := &Stats{Docs: len(docs)}
	if len(docs) == 0 {
		return stats, nil
	}

	if idx.vectors != nil {
		if err := idx.indexVectors(ctx, docs, stats); err != nil {
			return nil, err
		}
	}
	if idx.lexical != nil {
		if err := idx.indexLexical(ctx, docs, stats); err != nil {
			return nil, err
		}
	}
	idx.logger.Info("Catalog indexed",
		zap.Int("docs", stats.Docs),
		zap.Int("vector_points", stats.VectorPoints),
		zap.Int("lexical_docs", stats.LexicalDocs))
	return stats, nil
}

func (idx *Indexer) indexVectors(ctx context.Context, docs []*models.Document, stats *Stats) error {
	ensured := false
	for i, batch := range Batches(docs, idx.batchSize) {
		texts := make([]string, len(batch))
		for j, d := range batch {
			texts[j] = d.FullText()
		}
		vecs, err := embedding.EmbedDocuments(ctx, idx.embedder, texts)
		if err != nil {
			return fmt.Errorf("failed to embed batch %d: %w", i, err)
		}
		if !ensured {
			created, err := idx.vectors.EnsureCollection(ctx, len(vecs[0]))
			if err != nil {
				return err
			}
			stats.CollectionCreated = created
			ensured = true
			idx.logger.Debug("indexer vector collection ready", zap.Bool("created", created), zap.Int("dim", len(vecs[0])))
		}
		points := make([]vector.Point, len(batch))
		for j, d := range batch {
			points[j] = vector.Point{
				DocID:  d.DocID,
				Vector: vecs[j],
				Payload: map[string]any{
					"title":    d.Title,
					"text":     d.Text,
					"category": d.Category,
				},
			}
		}
		if err := idx.vectors.Upsert(ctx, points); err != nil {
			return err
		}
		stats.VectorPoints += len(points)
		idx.logger.Debug("indexer upserted vector batch", zap.Int("batch", i), zap.Int("points", len(points)))
	}
	return nil
}

func (idx *Indexer) indexLexical(ctx context.Context, docs []*models.Document, stats *Stats) error {
	created, err := idx.lexical.EnsureIndex(ctx)
	if err != nil {
		return err
	}
	stats.IndexCreated = created
	for i, batch := range Batches(docs, idx.batchSize) {
		out := make([]keyword.ElasticDoc, len(batch))
		for j, d := range batch {
			out[j] = keyword.ElasticDoc{
				DocID:    d.DocID,
				Title:    d.Title,
				Text:     d.Text,
				BM25Text: BM25Text(d),
				Category: d.Category,
			}
		}
		if err := idx.lexical.Bulk(ctx, out); err != nil {
			return err
		}
		stats.LexicalDocs += len(out)
		idx.logger.Debug("indexer bulk indexed batch", zap.Int("batch", i), zap.Int("docs", len(out)))
	}
	return nil
}
