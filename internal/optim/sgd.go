package optim

// SGD is plain stochastic gradient descent. Under federated algorithms like
// FedAvg and FedProx the local optimizer stays this simple on purpose; any
// adaptivity lives on the server side.
type SGD struct {
	groups []ParameterGroup
	lr     float64
	step   int
}

func NewSGD(groups []ParameterGroup, lr float64) *SGD {
	return &SGD{
		groups: groups,
		lr:     lr,
	}
}

func (opt *SGD) Step() {
	opt.step++
	for _, group := range opt.groups {
		lr := groupLearningRate(group, opt.lr)
		for _, p := range group.Params {
			rows, cols := p.Value.Dims()
			for i := 0; i < rows; i++ {
				for j := 0; j < cols; j++ {
					p.Value.Set(i, j, p.Value.At(i, j)-lr*p.Grad.At(i, j))
				}
			}
		}
	}
}

func (opt *SGD) SetLearningRate(lr float64) {
	opt.lr = lr
}

func (opt *SGD) LearningRate() float64 {
	return opt.lr
}

func (opt *SGD) Groups() []ParameterGroup {
	return opt.groups
}

func (opt *SGD) StepCount() int {
	return opt.step
}
