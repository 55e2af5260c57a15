package indexer

import "github.com/hyperjump/kurabe/internal/models"

// DefaultBatchSize is the number of documents sent per upsert or bulk request.
const DefaultBatchSize = 64

// Batches splits docs into consecutive slices of at most size documents.
// The slices share docs' backing array.
func Batches(docs []*models.Document, size int) [][]*models.Document {
	if len(docs) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][]*models.Document, 0, (len(docs)+size-1)/size)
	for i := 0; i < len(docs); i += size {
		end := i + size
		if end > len(docs) {
			end = len(docs)
		}
		out = append(out, docs[i:end])
	}
	return out
}
