package metrics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPerfectPredictionScoresOne(t *testing.T) {
	references := [][]string{{"B-PER", "I-PER", "O", "B-LOC"}}
	predictions := [][]string{{"B-PER", "I-PER", "O", "B-LOC"}}

	assert.Equal(t, 1.0, PrecisionScore(references, predictions))
	assert.Equal(t, 1.0, RecallScore(references, predictions))
	assert.Equal(t, 1.0, F1Score(references, predictions))
}

func TestPartialOverlap(t *testing.T) {
	references := [][]string{{"B-PER", "I-PER", "O", "B-LOC"}}
	// PER span is cut short, LOC matches
	predictions := [][]string{{"B-PER", "O", "O", "B-LOC"}}

	assert.Equal(t, 0.5, PrecisionScore(references, predictions))
	assert.Equal(t, 0.5, RecallScore(references, predictions))
	assert.Equal(t, 0.5, F1Score(references, predictions))
}

func TestTypeMismatchIsWrong(t *testing.T) {
	references := [][]string{{"B-PER", "O"}}
	predictions := [][]string{{"B-LOC", "O"}}

	assert.Equal(t, 0.0, F1Score(references, predictions))
}

func TestEmptyPredictionsScoreZero(t *testing.T) {
	references := [][]string{{"B-PER", "O"}}
	predictions := [][]string{{"O", "O"}}

	assert.Equal(t, 0.0, PrecisionScore(references, predictions))
	assert.Equal(t, 0.0, RecallScore(references, predictions))
	assert.Equal(t, 0.0, F1Score(references, predictions))
}

func TestDanglingInsideTagOpensEntity(t *testing.T) {
	references := [][]string{{"O", "I-LOC", "I-LOC", "O"}}
	predictions := [][]string{{"O", "B-LOC", "I-LOC", "O"}}

	assert.Equal(t, 1.0, F1Score(references, predictions))
}

func TestClassificationReportListsAllTypes(t *testing.T) {
	references := [][]string{{"B-PER", "I-PER", "O", "B-LOC"}}
	predictions := [][]string{{"B-PER", "I-PER", "O", "B-ORG"}}

	report := ClassificationReport(references, predictions)

	assert.Contains(t, report, "LOC")
	assert.Contains(t, report, "ORG")
	assert.Contains(t, report, "PER")
	assert.Contains(t, report, "micro avg")

	lines := strings.Split(strings.TrimRight(report, "\n"), "\n")
	// header, three types, micro avg
	assert.Len(t, lines, 5)
}
