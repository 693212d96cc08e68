package ml

import (
	"errors"
	"fmt"
	"math"
)

const (
	LinkIdentity = "identity"
	LinkLogistic = "logistic"
)

// LinearModel 线性模型 w·x + b，logistic链接时以0.5为阈值输出0或1
type LinearModel struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Link    string    `json:"link,omitempty"`
}

func (m *LinearModel) Family() string {
	return FamilyLinear
}

func (m *LinearModel) FeatureCount() int {
	return len(m.Weights)
}

func (m *LinearModel) Validate() error {
	if len(m.Weights) == 0 {
		return errors.New("linear model has no weights")
	}
	switch m.Link {
	case "", LinkIdentity, LinkLogistic:
	default:
		return fmt.Errorf("unsupported link %q", m.Link)
	}
	for i, w := range m.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("weight %d is not finite", i)
		}
	}
	return nil
}

// Predict 批量预测
func (m *LinearModel) Predict(batch [][]float64) ([]float64, error) {
	if len(m.Weights) == 0 {
		return nil, ErrModelNotTrained
	}
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}
	out := make([]float64, len(batch))
	for i, row := range batch {
		if err := checkWidth(row, len(m.Weights)); err != nil {
			return nil, err
		}
		score := m.Bias
		for j, w := range m.Weights {
			score += w * row[j]
		}
		if m.Link == LinkLogistic {
			if 1/(1+math.Exp(-score)) >= 0.5 {
				score = 1
			} else {
				score = 0
			}
		}
		out[i] = score
	}
	return out, nil
}
