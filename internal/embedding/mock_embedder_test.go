package embedding

import (
	"context"
	"crypto/sha256"
	"math"
	"testing"
)

func TestMockEmbedder_DeterministicAndNormalized(t *testing.T) {
	e := NewMockEmbedder(0)
	if e.Dimensions() != DefaultMockDimensions {
		t.Fatalf("Dimensions() = %d, want %d", e.Dimensions(), DefaultMockDimensions)
	}
	out, err := e.EmbedTexts(context.Background(), []string{"red shoe", "red shoe", "blue hat"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 || len(out[0]) != DefaultMockDimensions {
		t.Fatalf("unexpected shape: %d x %d", len(out), len(out[0]))
	}
	for i := range out[0] {
		if out[0][i] != out[1][i] {
			t.Fatal("same text should give identical vectors")
		}
	}
	same := true
	for i := range out[0] {
		if out[0][i] != out[2][i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts should give different vectors")
	}

	var norm float64
	for _, v := range out[0] {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("vector norm^2 = %v, want 1", norm)
	}
}

func TestMockEmbedder_CyclesDigestBytes(t *testing.T) {
	e := NewMockEmbedder(64)
	out, _ := e.EmbedTexts(context.Background(), []string{"x"})
	v := out[0]
	for i := 0; i < 32; i++ {
		if v[i] != v[i+32] {
			t.Fatalf("component %d != component %d", i, i+32)
		}
	}

	digest := sha256.Sum256([]byte("x"))
	var norm float64
	for i := 0; i < 64; i++ {
		b := float64(digest[i%32]) / 255
		norm += b * b
	}
	want := float64(digest[0]) / 255 / math.Sqrt(norm)
	if math.Abs(float64(v[0])-want) > 1e-6 {
		t.Errorf("v[0] = %v, want %v", v[0], want)
	}
}

func TestEmbedQuery_PlainEmbedder(t *testing.T) {
	e := NewMockEmbedder(8)
	q, err := EmbedQuery(context.Background(), e, "query")
	if err != nil {
		t.Fatal(err)
	}
	docs, err := EmbedDocuments(context.Background(), e, []string{"query"})
	if err != nil {
		t.Fatal(err)
	}
	for i := range q {
		if q[i] != docs[0][i] {
			t.Fatal("plain embedder should embed queries and documents the same way")
		}
	}
}
