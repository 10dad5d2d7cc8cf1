package data

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// InputExample is one source/target pair of a seq2seq dataset.
type InputExample struct {
	Guid       int    `json:"guid"`
	InputText  string `json:"input_text"`
	OutputText string `json:"output_text"`
}

// Attributes carries the dataset-level metadata stored next to the examples.
type Attributes struct {
	LabelVocab []string `json:"label_vocab"`
}

// DataFile is the on-disk dataset layout: attributes plus the full example
// list. Partitions reference examples by their position in this list.
type DataFile struct {
	Attributes Attributes     `json:"attributes"`
	Examples   []InputExample `json:"examples"`
}

// LoadDataFile reads and validates a dataset file.
func LoadDataFile(path string) (*DataFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading data file %s failed: %w", path, err)
	}

	dataFile := &DataFile{}
	if err := json.Unmarshal(raw, dataFile); err != nil {
		return nil, fmt.Errorf("parsing data file %s failed: %w", path, err)
	}
	if len(dataFile.Examples) == 0 {
		return nil, fmt.Errorf("data file %s contains no examples", path)
	}

	for i := range dataFile.Examples {
		if dataFile.Examples[i].Guid == 0 {
			dataFile.Examples[i].Guid = i
		}
	}

	return dataFile, nil
}

// Vocabulary returns the sorted set of whitespace tokens appearing in the
// examples plus the label vocabulary. Used to build a word-level tokenizer
// when no pretrained tokenizer file is available.
func (df *DataFile) Vocabulary() []string {
	seen := map[string]struct{}{}
	for _, example := range df.Examples {
		for _, token := range strings.Fields(example.InputText) {
			seen[token] = struct{}{}
		}
		for _, token := range strings.Fields(example.OutputText) {
			seen[token] = struct{}{}
		}
	}
	for _, label := range df.Attributes.LabelVocab {
		seen[label] = struct{}{}
	}

	vocabulary := make([]string, 0, len(seen))
	for token := range seen {
		vocabulary = append(vocabulary, token)
	}
	sort.Strings(vocabulary)

	return vocabulary
}
