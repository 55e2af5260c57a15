package keyword

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/kurabe/internal/models"
)

// BleveOptions tunes the Bleve retriever. The zero value runs a plain match query.
type BleveOptions struct {
	// TitleBoost multiplies title-field matches. Values <= 1 disable the boost.
	TitleBoost float64
	// Fuzziness enables fuzzy term matching with the given edit distance (1 or 2).
	Fuzziness int
}

type bleveDoc struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

// BleveIndex is an in-memory Bleve index over the run catalog.
type BleveIndex struct {
	index bleve.Index
	docs  []*models.Document
	opts  BleveOptions
}

// NewBleveIndex builds a memory-only index of docs using the standard analyzer
// (lowercase + tokenize, no stemming).
func NewBleveIndex(docs []*models.Document, opts BleveOptions) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	docMapping.AddFieldMappingsAt("category", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}

	batch := index.NewBatch()
	for _, d := range docs {
		if err := batch.Index(d.DocID, bleveDoc{Title: d.Title, Text: d.Text, Category: d.Category}); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to index %s: %w", d.DocID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to commit Bleve batch: %w", err)
	}
	return &BleveIndex{index: index, docs: docs, opts: opts}, nil
}

// Name returns "bleve".
func (b *BleveIndex) Name() string {
	return "bleve"
}

// Query runs the configured query and returns up to topK hits in Bleve score order.
func (b *BleveIndex) Query(ctx context.Context, text string, topK int) ([]models.ScoredDoc, error) {
	if strings.TrimSpace(text) == "" {
		return catalogOrder(b.docs, topK), nil
	}
	if topK <= 0 {
		return []models.ScoredDoc{}, nil
	}

	req := bleve.NewSearchRequest(b.buildQuery(text))
	req.Size = topK
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]models.ScoredDoc, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = models.ScoredDoc{
			DocID:  hit.ID,
			Score:  hit.Score,
			Source: models.SourceBM25,
			Extra:  map[string]any{"rank": i + 1},
		}
	}
	return out, nil
}

func (b *BleveIndex) buildQuery(text string) blevequery.Query {
	fieldQuery := func(field string) blevequery.Query {
		if b.opts.Fuzziness > 0 {
			terms := strings.Fields(strings.ToLower(text))
			queries := make([]blevequery.Query, 0, len(terms))
			for _, term := range terms {
				fq := bleve.NewFuzzyQuery(term)
				fq.SetFuzziness(b.opts.Fuzziness)
				if field != "" {
					fq.SetField(field)
				}
				queries = append(queries, fq)
			}
			return bleve.NewDisjunctionQuery(queries...)
		}
		mq := bleve.NewMatchQuery(text)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}

	if b.opts.TitleBoost <= 1 {
		return fieldQuery("")
	}
	title := fieldQuery("title")
	if bq, ok := title.(blevequery.BoostableQuery); ok {
		bq.SetBoost(b.opts.TitleBoost)
	}
	return bleve.NewDisjunctionQuery(title, fieldQuery("text"))
}

// DocCount returns the number of indexed documents.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
