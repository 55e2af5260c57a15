package indexer

import (
	"github.com/hyperjump/kurabe/internal/models"
	"github.com/hyperjump/kurabe/pkg/utils"
)

// BM25Text is the field the Elasticsearch retriever matches on: title and
// text with whitespace collapsed.
func BM25Text(d *models.Document) string {
	return utils.CollapseWhitespace(d.Title + " " + d.Text)
}
