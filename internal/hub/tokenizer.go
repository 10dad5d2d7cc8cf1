package hub

import (
	"fmt"
	"strings"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// PretrainedTokenizer wraps a HuggingFace tokenizer.json loaded from a model
// directory.
type PretrainedTokenizer struct {
	inner     *tk.Tokenizer
	tokenToId map[string]int
	idToToken []string
	padId     int
	bosId     int
	eosId     int
}

func LoadPretrainedTokenizer(path string) (*PretrainedTokenizer, error) {
	inner, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer %s failed: %w", path, err)
	}

	vocab := inner.GetVocab(true)
	tokenizer := &PretrainedTokenizer{
		inner:     inner,
		tokenToId: make(map[string]int, len(vocab)),
		idToToken: make([]string, len(vocab)),
	}
	for token, id := range vocab {
		tokenizer.tokenToId[token] = id
		if id >= 0 && id < len(tokenizer.idToToken) {
			tokenizer.idToToken[id] = token
		}
	}

	tokenizer.padId, err = tokenizer.specialId("<pad>", "[PAD]")
	if err != nil {
		return nil, err
	}
	tokenizer.bosId, err = tokenizer.specialId("<s>", "<bos>", "[CLS]")
	if err != nil {
		return nil, err
	}
	tokenizer.eosId, err = tokenizer.specialId("</s>", "<eos>", "[SEP]")
	if err != nil {
		return nil, err
	}

	return tokenizer, nil
}

func (t *PretrainedTokenizer) Encode(text string) ([]int, error) {
	encoding, err := t.inner.EncodeSingle(text)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(encoding.Ids))
	for i, id := range encoding.Ids {
		ids[i] = int(id)
	}
	return ids, nil
}

func (t *PretrainedTokenizer) Decode(ids []int) string {
	tokens := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == t.padId || id == t.bosId || id == t.eosId {
			continue
		}
		if id < 0 || id >= len(t.idToToken) {
			continue
		}
		tokens = append(tokens, t.idToToken[id])
	}
	return strings.Join(tokens, " ")
}

func (t *PretrainedTokenizer) PadTokenId() int {
	return t.padId
}

func (t *PretrainedTokenizer) BosTokenId() int {
	return t.bosId
}

func (t *PretrainedTokenizer) EosTokenId() int {
	return t.eosId
}

func (t *PretrainedTokenizer) VocabSize() int {
	return len(t.idToToken)
}

// specialId looks up the first of the candidate token names present in the
// vocabulary.
func (t *PretrainedTokenizer) specialId(candidates ...string) (int, error) {
	for _, candidate := range candidates {
		if id, found := t.tokenToId[candidate]; found {
			return id, nil
		}
	}
	return 0, fmt.Errorf("tokenizer vocabulary has none of the special tokens %v", candidates)
}
