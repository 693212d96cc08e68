package ml

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// DecisionTree 决策树分类器
type DecisionTree struct {
	nodes        []TreeNode
	featureCount int
}

// TreeNode 决策树节点
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	IsLeaf     bool    `json:"is_leaf"`
}

// NewDecisionTree 由节点数组创建决策树
func NewDecisionTree(nodes []TreeNode, featureCount int) (*DecisionTree, error) {
	dt := &DecisionTree{nodes: nodes, featureCount: featureCount}
	if err := dt.Validate(); err != nil {
		return nil, err
	}
	return dt, nil
}

func (dt *DecisionTree) Family() string {
	return FamilyDecisionTree
}

func (dt *DecisionTree) FeatureCount() int {
	return dt.featureCount
}

func (dt *DecisionTree) Nodes() []TreeNode {
	return append([]TreeNode(nil), dt.nodes...)
}

// Train 训练决策树
func (dt *DecisionTree) Train(features [][]float64, labels []int, maxDepth int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	width := len(features[0])
	for i, row := range features {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, expected %d", i, len(row), width)
		}
	}
	if maxDepth <= 0 {
		maxDepth = 3
	}

	dt.nodes = dt.buildNode(features, labels, 0, maxDepth)
	dt.featureCount = width
	return nil
}

// Predict 批量预测
func (dt *DecisionTree) Predict(batch [][]float64) ([]float64, error) {
	if len(dt.nodes) == 0 {
		return nil, ErrModelNotTrained
	}
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}
	out := make([]float64, len(batch))
	for i, row := range batch {
		label, err := dt.predictRow(row)
		if err != nil {
			return nil, err
		}
		out[i] = float64(label)
	}
	return out, nil
}

func (dt *DecisionTree) predictRow(features []float64) (int, error) {
	if err := checkWidth(features, dt.featureCount); err != nil {
		return 0, err
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.ClassLabel, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, fmt.Errorf("feature index %d out of range for %d features", node.FeatureIdx, len(features))
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}

// Validate 校验内部节点只指向其后且存在的子节点，保证遍历不会成环
func (dt *DecisionTree) Validate() error {
	if len(dt.nodes) == 0 {
		return ErrModelNotTrained
	}
	if dt.featureCount < 0 {
		return fmt.Errorf("negative feature count %d", dt.featureCount)
	}
	for i, node := range dt.nodes {
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 {
			return fmt.Errorf("node %d: negative feature index", i)
		}
		if dt.featureCount > 0 && node.FeatureIdx >= dt.featureCount {
			return fmt.Errorf("node %d: feature index %d exceeds feature count %d", i, node.FeatureIdx, dt.featureCount)
		}
		for _, child := range []int{node.LeftChild, node.RightChild} {
			if child <= i || child >= len(dt.nodes) {
				return fmt.Errorf("node %d: child index %d out of range", i, child)
			}
		}
		if math.IsNaN(node.Threshold) {
			return fmt.Errorf("node %d: threshold is NaN", i)
		}
	}
	return nil
}

func (dt *DecisionTree) buildNode(features [][]float64, labels []int, depth int, maxDepth int) []TreeNode {
	leaf := []TreeNode{{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		ClassLabel: majorityLabel(labels),
		IsLeaf:     true,
	}}
	if depth >= maxDepth || isPure(labels) {
		return leaf
	}

	bestFeature, threshold, ok := findBestSplit(features, labels)
	if !ok {
		return leaf
	}

	leftFeatures, leftLabels, rightFeatures, rightLabels := splitData(features, labels, bestFeature, threshold)
	if len(leftLabels) == 0 || len(rightLabels) == 0 {
		return leaf
	}

	leftNodes := dt.buildNode(leftFeatures, leftLabels, depth+1, maxDepth)
	rightNodes := dt.buildNode(rightFeatures, rightLabels, depth+1, maxDepth)

	root := TreeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
		ClassLabel: leaf[0].ClassLabel,
	}

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, shiftChildren(leftNodes, 1)...)
	nodes = append(nodes, shiftChildren(rightNodes, 1+len(leftNodes))...)
	return nodes
}

// shiftChildren 子树放到offset处时修正子节点下标
func shiftChildren(nodes []TreeNode, offset int) []TreeNode {
	for i := range nodes {
		if nodes[i].IsLeaf {
			continue
		}
		nodes[i].LeftChild += offset
		nodes[i].RightChild += offset
	}
	return nodes
}

func findBestSplit(features [][]float64, labels []int) (int, float64, bool) {
	featureCount := len(features[0])
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	for featureIdx := 0; featureIdx < featureCount; featureIdx++ {
		values := make([]float64, len(features))
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		threshold := median(values)
		leftLabels, rightLabels := splitLabels(features, labels, featureIdx, threshold)
		if len(leftLabels) == 0 || len(rightLabels) == 0 {
			continue
		}
		impurity := weightedGini(leftLabels, rightLabels)
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestFeature = featureIdx
			bestThreshold = threshold
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func splitData(features [][]float64, labels []int, featureIdx int, threshold float64) ([][]float64, []int, [][]float64, []int) {
	var leftFeatures, rightFeatures [][]float64
	var leftLabels, rightLabels []int
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftFeatures = append(leftFeatures, feature)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightFeatures = append(rightFeatures, feature)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftFeatures, leftLabels, rightFeatures, rightLabels
}

func splitLabels(features [][]float64, labels []int, featureIdx int, threshold float64) ([]int, []int) {
	_, left, _, right := splitData(features, labels, featureIdx, threshold)
	return left, right
}

func weightedGini(leftLabels, rightLabels []int) float64 {
	leftWeight := float64(len(leftLabels))
	rightWeight := float64(len(rightLabels))
	total := leftWeight + rightWeight
	return (leftWeight/total)*gini(leftLabels) + (rightWeight/total)*gini(rightLabels)
}

func gini(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	counts := make(map[int]int)
	for _, label := range labels {
		counts[label]++
	}
	impurity := 1.0
	for _, count := range counts {
		prob := float64(count) / float64(len(labels))
		impurity -= prob * prob
	}
	return impurity
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// majorityLabel 票数相同时取最小标签
func majorityLabel(labels []int) int {
	counts := make(map[int]int)
	for _, label := range labels {
		counts[label]++
	}
	bestLabel := 0
	bestCount := -1
	for label, count := range counts {
		if count > bestCount || (count == bestCount && label < bestLabel) {
			bestCount = count
			bestLabel = label
		}
	}
	return bestLabel
}

func isPure(labels []int) bool {
	if len(labels) == 0 {
		return true
	}
	first := labels[0]
	for _, label := range labels[1:] {
		if label != first {
			return false
		}
	}
	return true
}
