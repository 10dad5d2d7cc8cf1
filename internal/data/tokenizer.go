package data

import (
	"fmt"
	"strings"
)

// Tokenizer converts between text and token ids. Implementations cover the
// pretrained subword tokenizers of the hub package and the word-level
// fallback below.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) string
	PadTokenId() int
	BosTokenId() int
	EosTokenId() int
	VocabSize() int
}

const (
	padToken     = "<pad>"
	bosToken     = "<s>"
	eosToken     = "</s>"
	unknownToken = "<unk>"
)

// WhitespaceTokenizer is a word-level tokenizer over a fixed vocabulary.
// It backs debug runs and datasets without a pretrained tokenizer file.
type WhitespaceTokenizer struct {
	tokenToId map[string]int
	idToToken []string
}

func NewWhitespaceTokenizer(vocabulary []string) *WhitespaceTokenizer {
	tokenizer := &WhitespaceTokenizer{
		tokenToId: map[string]int{},
	}
	for _, token := range []string{padToken, bosToken, eosToken, unknownToken} {
		tokenizer.addToken(token)
	}
	for _, token := range vocabulary {
		tokenizer.addToken(token)
	}
	return tokenizer
}

func (t *WhitespaceTokenizer) addToken(token string) {
	if _, found := t.tokenToId[token]; found {
		return
	}
	t.tokenToId[token] = len(t.idToToken)
	t.idToToken = append(t.idToToken, token)
}

func (t *WhitespaceTokenizer) Encode(text string) ([]int, error) {
	fields := strings.Fields(text)
	ids := make([]int, 0, len(fields))
	for _, field := range fields {
		id, found := t.tokenToId[field]
		if !found {
			id = t.tokenToId[unknownToken]
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (t *WhitespaceTokenizer) Decode(ids []int) string {
	tokens := make([]string, 0, len(ids))
	for _, id := range ids {
		if id < 0 || id >= len(t.idToToken) {
			return fmt.Sprintf("<invalid id %d>", id)
		}
		token := t.idToToken[id]
		if token == padToken || token == bosToken || token == eosToken {
			continue
		}
		tokens = append(tokens, token)
	}
	return strings.Join(tokens, " ")
}

func (t *WhitespaceTokenizer) PadTokenId() int {
	return t.tokenToId[padToken]
}

func (t *WhitespaceTokenizer) BosTokenId() int {
	return t.tokenToId[bosToken]
}

func (t *WhitespaceTokenizer) EosTokenId() int {
	return t.tokenToId[eosToken]
}

func (t *WhitespaceTokenizer) VocabSize() int {
	return len(t.idToToken)
}
