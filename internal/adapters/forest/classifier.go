// Package forest provides a random forest classifier behind ports.Model.
package forest

import (
	"fmt"
	"math"

	randomforest "github.com/malaschitz/randomForest"
	"gonum.org/v1/gonum/stat"

	"cryptoScalper/internal/ports"
)

const minTrainingRows = 2

// Classifier standardizes features and votes with a random forest.
type Classifier struct {
	trees  int
	forest *randomforest.Forest
	scaler *scaler

	// set when every training label was the same class
	constant *float64
}

// NewClassifier creates an untrained classifier with the given number of trees.
func NewClassifier(trees int) *Classifier {
	if trees <= 0 {
		trees = 100
	}
	return &Classifier{trees: trees}
}

// Factory returns a ports.ModelFactory producing classifiers.
func Factory(trees int) ports.ModelFactory {
	return func() ports.Model { return NewClassifier(trees) }
}

// Train fits the scaler and forest. On error the classifier keeps its previous fit.
func (c *Classifier) Train(features [][]float64, labels []int) error {
	if len(features) < minTrainingRows {
		return fmt.Errorf("train: %d rows: %w: %w", len(features), ports.ErrModelFailure, ports.ErrInsufficientData)
	}
	if len(features) != len(labels) {
		return fmt.Errorf("train: %d rows but %d labels: %w", len(features), len(labels), ports.ErrModelFailure)
	}
	width := len(features[0])
	if width == 0 {
		return fmt.Errorf("train: empty feature rows: %w", ports.ErrModelFailure)
	}
	positives := 0
	for i, row := range features {
		if len(row) != width {
			return fmt.Errorf("train: row %d has %d features, want %d: %w", i, len(row), width, ports.ErrModelFailure)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("train: row %d has non-finite value: %w", i, ports.ErrModelFailure)
			}
		}
		switch labels[i] {
		case 0:
		case 1:
			positives++
		default:
			return fmt.Errorf("train: label %d at row %d is not binary: %w", labels[i], i, ports.ErrModelFailure)
		}
	}

	sc := fitScaler(features)
	if positives == 0 || positives == len(labels) {
		p := float64(positives) / float64(len(labels))
		c.scaler, c.forest, c.constant = sc, nil, &p
		return nil
	}

	forest := &randomforest.Forest{}
	forest.Data = randomforest.ForestData{X: sc.transformAll(features), Class: labels}
	forest.Train(c.trees)

	c.scaler, c.forest, c.constant = sc, forest, nil
	return nil
}

// PredictProbability returns the share of trees voting for class 1.
func (c *Classifier) PredictProbability(features []float64) (float64, error) {
	if c.scaler == nil {
		return 0, fmt.Errorf("predict: classifier not trained: %w", ports.ErrModelFailure)
	}
	if len(features) != len(c.scaler.mean) {
		return 0, fmt.Errorf("predict: got %d features, want %d: %w", len(features), len(c.scaler.mean), ports.ErrModelFailure)
	}
	if c.constant != nil {
		return *c.constant, nil
	}

	votes := c.forest.Vote(c.scaler.transform(features))
	if len(votes) < 2 {
		return 0, nil
	}
	return math.Min(math.Max(votes[1], 0), 1), nil
}

// scaler standardizes each column to zero mean and unit variance.
type scaler struct {
	mean []float64
	std  []float64
}

func fitScaler(rows [][]float64) *scaler {
	width := len(rows[0])
	s := &scaler{mean: make([]float64, width), std: make([]float64, width)}
	col := make([]float64, len(rows))
	for j := 0; j < width; j++ {
		for i, row := range rows {
			col[i] = row[j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.mean[j], s.std[j] = mean, std
	}
	return s
}

func (s *scaler) transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.mean[j]) / s.std[j]
	}
	return out
}

func (s *scaler) transformAll(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = s.transform(row)
	}
	return out
}
