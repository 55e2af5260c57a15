//go:build !faiss || !cgo

package pipeline

import (
	"context"
	"testing"

	"github.com/hyperjump/kurabe/internal/config"
	"github.com/hyperjump/kurabe/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFactory_FAISSUnavailableWithoutTag(t *testing.T) {
	ctx := context.Background()
	f := factoryWithEnv(nil)
	vs := vendorSet(func(vs *config.VendorSet) { vs.VectorDB.Provider = "faiss" })

	emb, err := f.Embedder(ctx, vs)
	require.NoError(t, err)
	defer emb.Close()

	_, err = f.VectorRetriever(ctx, vs, factoryDocs, emb)
	assert.ErrorIs(t, err, vector.ErrFAISSUnavailable)
}
