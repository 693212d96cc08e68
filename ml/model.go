package ml

import (
	"errors"
	"fmt"
)

const (
	FamilyDecisionTree = "decision_tree"
	FamilyLinear       = "linear"
)

var (
	ErrModelNotTrained = errors.New("model not trained")
	ErrUnknownFamily   = errors.New("unknown model family")
	ErrEmptyBatch      = errors.New("batch is empty")
)

// Predictor 预测器接口，每个输入行按顺序对应一个输出
type Predictor interface {
	Predict(batch [][]float64) ([]float64, error)
	Family() string
}

// FeatureCounter 已知输入宽度的预测器，0表示模型文件未记录宽度
type FeatureCounter interface {
	FeatureCount() int
}

func checkWidth(row []float64, expected int) error {
	if expected > 0 && len(row) != expected {
		return &WidthError{Got: len(row), Expected: expected}
	}
	return nil
}

// WidthError 输入特征数与模型不符
type WidthError struct {
	Got      int
	Expected int
}

func (e *WidthError) Error() string {
	return fmt.Sprintf("X has %d features, but model is expecting %d features as input", e.Got, e.Expected)
}
