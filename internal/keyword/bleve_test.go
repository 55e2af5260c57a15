package keyword

import (
	"context"
	"testing"

	"github.com/hyperjump/kurabe/internal/models"
)

func bleveDocs() []*models.Document {
	return []*models.Document{
		{DocID: "p1", Title: "Trail Running Shoe", Text: "Lightweight shoe for mountain trails", Category: "shoes"},
		{DocID: "p2", Title: "Rain Jacket", Text: "Waterproof jacket with hood", Category: "outerwear"},
		{DocID: "p3", Title: "Wool Socks", Text: "Warm socks for hiking and running", Category: "socks"},
	}
}

func TestBleveIndex_QueryFindsTitleAndText(t *testing.T) {
	idx, err := NewBleveIndex(bleveDocs(), BleveOptions{})
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	defer func() { _ = idx.Close() }()

	count, err := idx.DocCount()
	if err != nil || count != 3 {
		t.Fatalf("DocCount = %d, %v", count, err)
	}

	got, err := idx.Query(context.Background(), "waterproof", 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].DocID != "p2" {
		t.Fatalf("waterproof: %+v", got)
	}

	// standard analyzer lowercases, so title case does not matter
	got, err = idx.Query(context.Background(), "JACKET", 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) == 0 || got[0].DocID != "p2" {
		t.Fatalf("JACKET: %+v", got)
	}
	if got[0].Source != models.SourceBM25 || got[0].Extra["rank"] != 1 {
		t.Errorf("unexpected hit metadata: %+v", got[0])
	}
}

func TestBleveIndex_TitleBoost(t *testing.T) {
	idx, err := NewBleveIndex(bleveDocs(), BleveOptions{TitleBoost: 5})
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	defer func() { _ = idx.Close() }()

	got, err := idx.Query(context.Background(), "running", 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 hits, got %+v", got)
	}
	if got[0].DocID != "p1" {
		t.Errorf("title match should rank first with boost, got %s", got[0].DocID)
	}
}

func TestBleveIndex_Fuzzy(t *testing.T) {
	idx, err := NewBleveIndex(bleveDocs(), BleveOptions{Fuzziness: 1})
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	defer func() { _ = idx.Close() }()

	got, err := idx.Query(context.Background(), "jackt", 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) == 0 || got[0].DocID != "p2" {
		t.Errorf("fuzzy query should match jacket: %+v", got)
	}
}

func TestBleveIndex_EmptyQuery(t *testing.T) {
	idx, err := NewBleveIndex(bleveDocs(), BleveOptions{})
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	defer func() { _ = idx.Close() }()

	got, err := idx.Query(context.Background(), "", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 || got[0].DocID != "p1" || got[1].DocID != "p2" {
		t.Errorf("empty query fallback: %+v", got)
	}
}
