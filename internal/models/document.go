// Package models defines core data structures for catalog documents, query cases, and scored results.
package models

import "strings"

// Document represents a catalog entry. Documents are immutable once loaded.
type Document struct {
	DocID    string            `json:"doc_id"`
	Title    string            `json:"title"`
	Text     string            `json:"text"`
	Category string            `json:"category"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// FullText returns the title and text joined by a single space, trimmed.
func (d *Document) FullText() string {
	return strings.TrimSpace(d.Title + " " + d.Text)
}

// Catalog is the ordered, read-only document collection of a run.
type Catalog struct {
	docs []*Document
	byID map[string]*Document
}

// NewCatalog builds a catalog preserving input order. Later duplicates of a doc_id are dropped.
func NewCatalog(docs []*Document) *Catalog {
	c := &Catalog{
		docs: make([]*Document, 0, len(docs)),
		byID: make(map[string]*Document, len(docs)),
	}
	for _, d := range docs {
		if d == nil || d.DocID == "" {
			continue
		}
		if _, ok := c.byID[d.DocID]; ok {
			continue
		}
		c.docs = append(c.docs, d)
		c.byID[d.DocID] = d
	}
	return c
}

// Get returns the document with the given id, or nil.
func (c *Catalog) Get(docID string) *Document {
	return c.byID[docID]
}

// Has reports whether the catalog contains docID.
func (c *Catalog) Has(docID string) bool {
	_, ok := c.byID[docID]
	return ok
}

// Len returns the number of documents.
func (c *Catalog) Len() int {
	return len(c.docs)
}

// Docs returns the documents in catalog order. Callers must not modify the slice.
func (c *Catalog) Docs() []*Document {
	return c.docs
}

// Missing returns the ids from docIDs that are not in the catalog, in input order.
func (c *Catalog) Missing(docIDs []string) []string {
	var missing []string
	for _, id := range docIDs {
		if !c.Has(id) {
			missing = append(missing, id)
		}
	}
	return missing
}
