package common

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

func CalculateAverageFloat64(numbers []float64) float64 {
	if len(numbers) == 0 {
		return 0
	}

	var sum float64
	for _, number := range numbers {
		sum += number
	}

	return sum / float64(len(numbers))
}

func GetHistoryFileName(outputDir string) string {
	os.MkdirAll(outputDir, 0777)
	return filepath.Join(outputDir, fmt.Sprintf("%s_%s.csv", TRAIN_HISTORY_FILE_PREFIX, time.Now().Format("2006-01-02_15-04")))
}

func IsEncoderDecoderShifted(modelType string) bool {
	return modelType == MODEL_TYPE_BART || modelType == MODEL_TYPE_MARIAN
}
