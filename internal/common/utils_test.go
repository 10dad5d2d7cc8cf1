package common

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateAverageFloat64(t *testing.T) {
	assert.Equal(t, 0.0, CalculateAverageFloat64(nil))
	assert.Equal(t, 2.0, CalculateAverageFloat64([]float64{1, 2, 3}))
}

func TestGetHistoryFileNameCreatesDirectory(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "nested", "output")

	name := GetHistoryFileName(outputDir)

	assert.DirExists(t, outputDir)
	assert.True(t, strings.HasPrefix(filepath.Base(name), TRAIN_HISTORY_FILE_PREFIX))
	assert.True(t, strings.HasSuffix(name, ".csv"))
}

func TestIsEncoderDecoderShifted(t *testing.T) {
	assert.True(t, IsEncoderDecoderShifted(MODEL_TYPE_BART))
	assert.True(t, IsEncoderDecoderShifted(MODEL_TYPE_MARIAN))
	assert.False(t, IsEncoderDecoderShifted(MODEL_TYPE_MBART))
	assert.False(t, IsEncoderDecoderShifted(MODEL_TYPE_SEQ2SEQ))
}
