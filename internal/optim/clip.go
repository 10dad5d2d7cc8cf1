package optim

import (
	"math"

	"github.com/UbiquitousLearning/AutoFedNLP/internal/nn"
)

// ClipGradNorm rescales all gradients so that their global L2 norm does not
// exceed maxNorm, and returns the norm before clipping. maxNorm <= 0 disables
// clipping.
func ClipGradNorm(params []nn.NamedParameter, maxNorm float64) float64 {
	totalSq := 0.0
	for _, p := range params {
		rows, cols := p.Grad.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				g := p.Grad.At(i, j)
				totalSq += g * g
			}
		}
	}
	totalNorm := math.Sqrt(totalSq)

	if maxNorm <= 0 || totalNorm <= maxNorm {
		return totalNorm
	}

	factor := maxNorm / (totalNorm + 1e-6)
	for _, p := range params {
		rows, cols := p.Grad.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				p.Grad.Set(i, j, p.Grad.At(i, j)*factor)
			}
		}
	}

	return totalNorm
}
