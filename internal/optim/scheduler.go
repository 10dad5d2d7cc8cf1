package optim

// WarmupLinearSchedule ramps the learning rate linearly from zero to the base
// rate over the warmup steps, then decays it linearly to zero over the
// remaining steps.
type WarmupLinearSchedule struct {
	optimizer   Optimizer
	baseLR      float64
	warmupSteps int
	totalSteps  int
	currentStep int
}

func NewWarmupLinearSchedule(optimizer Optimizer, warmupSteps, totalSteps int) *WarmupLinearSchedule {
	scheduler := &WarmupLinearSchedule{
		optimizer:   optimizer,
		baseLR:      optimizer.LearningRate(),
		warmupSteps: warmupSteps,
		totalSteps:  totalSteps,
	}
	optimizer.SetLearningRate(scheduler.LearningRateAt(0))
	return scheduler
}

// Step advances the schedule by one optimization step.
func (s *WarmupLinearSchedule) Step() {
	s.currentStep++
	s.optimizer.SetLearningRate(s.LearningRateAt(s.currentStep))
}

func (s *WarmupLinearSchedule) LearningRateAt(step int) float64 {
	if step < s.warmupSteps {
		return s.baseLR * float64(step) / float64(max(1, s.warmupSteps))
	}
	remaining := float64(s.totalSteps-step) / float64(max(1, s.totalSteps-s.warmupSteps))
	if remaining < 0 {
		remaining = 0
	}
	return s.baseLR * remaining
}

func (s *WarmupLinearSchedule) CurrentStep() int {
	return s.currentStep
}
