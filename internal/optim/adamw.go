package optim

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// AdamW implements Adam with decoupled weight decay: the decay term is
// applied directly to the parameter, outside the moment estimates, so a
// group's weight decay never leaks into the adaptive step size.
type AdamW struct {
	groups []ParameterGroup
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64

	m    map[string]*mat.Dense
	v    map[string]*mat.Dense
	step int
}

func NewAdamW(groups []ParameterGroup, lr float64, eps float64) *AdamW {
	opt := &AdamW{
		groups: groups,
		lr:     lr,
		beta1:  0.9,
		beta2:  0.999,
		eps:    eps,
		m:      make(map[string]*mat.Dense),
		v:      make(map[string]*mat.Dense),
	}
	for _, group := range groups {
		for _, p := range group.Params {
			rows, cols := p.Value.Dims()
			opt.m[p.Name] = mat.NewDense(rows, cols, nil)
			opt.v[p.Name] = mat.NewDense(rows, cols, nil)
		}
	}
	return opt
}

func (opt *AdamW) Step() {
	opt.step++
	bc1 := 1.0 - math.Pow(opt.beta1, float64(opt.step))
	bc2 := 1.0 - math.Pow(opt.beta2, float64(opt.step))

	for _, group := range opt.groups {
		lr := groupLearningRate(group, opt.lr)
		for _, p := range group.Params {
			m := opt.m[p.Name]
			v := opt.v[p.Name]
			rows, cols := p.Value.Dims()
			for i := 0; i < rows; i++ {
				for j := 0; j < cols; j++ {
					g := p.Grad.At(i, j)
					mNew := opt.beta1*m.At(i, j) + (1.0-opt.beta1)*g
					vNew := opt.beta2*v.At(i, j) + (1.0-opt.beta2)*g*g
					m.Set(i, j, mNew)
					v.Set(i, j, vNew)

					mHat := mNew / bc1
					vHat := vNew / bc2

					value := p.Value.At(i, j)
					value -= lr * mHat / (math.Sqrt(vHat) + opt.eps)
					if group.WeightDecay > 0 {
						value -= lr * group.WeightDecay * p.Value.At(i, j)
					}
					p.Value.Set(i, j, value)
				}
			}
		}
	}
}

func (opt *AdamW) SetLearningRate(lr float64) {
	opt.lr = lr
}

func (opt *AdamW) LearningRate() float64 {
	return opt.lr
}

func (opt *AdamW) Groups() []ParameterGroup {
	return opt.groups
}

func (opt *AdamW) StepCount() int {
	return opt.step
}
