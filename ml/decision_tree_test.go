package ml

import "testing"

func TestDecisionTreeTrainPredict(t *testing.T) {
	features := [][]float64{
		{0.1, 0.2},
		{0.2, 0.1},
		{0.9, 0.8},
		{0.8, 0.9},
	}
	labels := []int{0, 0, 2, 2}

	model := &DecisionTree{}
	if err := model.Train(features, labels, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := model.Predict([][]float64{{0.15, 0.15}, {0.85, 0.85}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 predictions, got %d", len(out))
	}
	if out[0] != 0 || out[1] != 2 {
		t.Fatalf("unexpected predictions: %v", out)
	}
	if model.FeatureCount() != 2 {
		t.Fatalf("expected feature count 2, got %d", model.FeatureCount())
	}
}

func TestDecisionTreeDeepTreeIsValid(t *testing.T) {
	features := [][]float64{
		{0.1, 0.1}, {0.2, 0.9}, {0.3, 0.2}, {0.4, 0.8},
		{0.6, 0.1}, {0.7, 0.9}, {0.8, 0.2}, {0.9, 0.8},
	}
	labels := []int{0, 1, 0, 1, 2, 3, 2, 3}

	model := &DecisionTree{}
	if err := model.Train(features, labels, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := model.Validate(); err != nil {
		t.Fatalf("trained tree failed validation: %v", err)
	}
	out, err := model.Predict(features)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, label := range labels {
		if out[i] != float64(label) {
			t.Fatalf("row %d: expected %d, got %v", i, label, out[i])
		}
	}
}

func TestDecisionTreeWidthMismatch(t *testing.T) {
	model := &DecisionTree{}
	if err := model.Train([][]float64{{0, 0}, {1, 1}}, []int{0, 1}, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := model.Predict([][]float64{{0.5, 0.5, 0.5}}); err == nil {
		t.Fatal("expected width error")
	}
}

func TestDecisionTreeUntrained(t *testing.T) {
	model := &DecisionTree{}
	if _, err := model.Predict([][]float64{{1}}); err != ErrModelNotTrained {
		t.Fatalf("expected ErrModelNotTrained, got %v", err)
	}
}

func TestDecisionTreeValidateRejectsBackwardChild(t *testing.T) {
	nodes := []TreeNode{
		{FeatureIdx: 0, Threshold: 0.5, LeftChild: 0, RightChild: 1},
		{IsLeaf: true, ClassLabel: 1, LeftChild: -1, RightChild: -1, FeatureIdx: -1},
	}
	if _, err := NewDecisionTree(nodes, 0); err == nil {
		t.Fatal("expected cycle to be rejected")
	}
}
