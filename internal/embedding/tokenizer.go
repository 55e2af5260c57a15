package embedding

import (
	"hash/fnv"

	"github.com/hyperjump/kurabe/pkg/utils"
)

// Special token ids shared with BERT vocabularies.
const (
	TokenCLS int64 = 101
	TokenSEP int64 = 102
	// hashedVocabBase and hashedVocabSize place hashed word ids clear of the
	// special-token range.
	hashedVocabBase = 1000
	hashedVocabSize = 30000
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// SimpleTokenizer maps Unicode word tokens to hashed ids. It does not match
// any model vocabulary; it exists for models exported with the same hashing.
type SimpleTokenizer struct{}

// Tokenize returns [CLS] w1 .. wn [SEP] padded to maxTokens. Words beyond the
// sequence length are dropped and [SEP] is always kept.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = DefaultONNXMaxTokens
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	seq := []int64{TokenCLS}
	for _, w := range utils.Tokenize(text) {
		if len(seq) >= maxTokens-1 {
			break
		}
		seq = append(seq, WordID(w))
	}
	if len(seq) < maxTokens {
		seq = append(seq, TokenSEP)
	}
	for i, id := range seq {
		inputIDs[i] = id
		attentionMask[i] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// WordID returns the deterministic hashed vocabulary id of w.
func WordID(w string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(w))
	return int64(h.Sum32()%hashedVocabSize) + hashedVocabBase
}
