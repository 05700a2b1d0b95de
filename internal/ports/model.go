package ports

import "time"

// Model is a binary classifier producing the probability of the positive class.
type Model interface {
	// Train fits the model to features and binary labels (0 or 1).
	Train(features [][]float64, labels []int) error
	// PredictProbability returns P(label = 1) in [0,1].
	PredictProbability(features []float64) (float64, error)
}

// ModelFactory creates an untrained model.
type ModelFactory func() Model

// ModelState holds a symbol's current model and when it was last trained.
// A zero LastTrained means the model has never been trained.
type ModelState struct {
	Symbol      string
	Model       Model
	LastTrained time.Time
}

// Trained reports whether the state holds a usable model.
func (s *ModelState) Trained() bool {
	return s != nil && s.Model != nil && !s.LastTrained.IsZero()
}
