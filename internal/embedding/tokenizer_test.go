package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("blue pen, refill", 8)
	require.Len(t, ids, 8)
	assert.Equal(t, TokenCLS, ids[0])
	assert.Equal(t, WordID("blue"), ids[1])
	assert.Equal(t, WordID("refill"), ids[3], "punctuation is not a token")
	assert.Equal(t, TokenSEP, ids[4])
	assert.Equal(t, []int64{1, 1, 1, 1, 1, 0, 0, 0}, attn)
	assert.Equal(t, make([]int64, 8), types)

	upper, _, _ := tok.Tokenize("BLUE pen", 8)
	assert.Equal(t, ids[1], upper[1], "tokenizer folds case")
}

func TestSimpleTokenizer_Truncates(t *testing.T) {
	ids, attn, _ := (&SimpleTokenizer{}).Tokenize("a b c d e f", 4)
	assert.Equal(t, []int64{TokenCLS, WordID("a"), WordID("b"), TokenSEP}, ids)
	assert.Equal(t, []int64{1, 1, 1, 1}, attn)
}

func TestSimpleTokenizer_DefaultLength(t *testing.T) {
	ids, _, _ := (&SimpleTokenizer{}).Tokenize("", 0)
	assert.Len(t, ids, DefaultONNXMaxTokens)
	assert.Equal(t, TokenSEP, ids[1])
}

func TestWordID(t *testing.T) {
	assert.Equal(t, WordID("abc"), WordID("abc"))
	id := WordID("abc")
	assert.GreaterOrEqual(t, id, int64(hashedVocabBase))
	assert.Less(t, id, int64(hashedVocabBase+hashedVocabSize))
}
