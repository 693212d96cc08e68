package ml

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainedTree(t *testing.T) *DecisionTree {
	t.Helper()
	features := [][]float64{
		{0.1, 0.2, 0.3, 0.4},
		{0.2, 0.1, 0.4, 0.3},
		{0.9, 0.8, 0.7, 0.6},
		{0.8, 0.9, 0.6, 0.7},
	}
	tree := &DecisionTree{}
	require.NoError(t, tree.Train(features, []int{0, 0, 1, 1}, 3))
	return tree
}

func TestArtifactRoundTripDecisionTree(t *testing.T) {
	tree := trainedTree(t)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, SaveArtifact(path, tree))

	loaded, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, FamilyDecisionTree, loaded.Family())
	assert.Equal(t, 4, loaded.(FeatureCounter).FeatureCount())

	want, err := tree.Predict([][]float64{{0.1, 0.2, 0.3, 0.4}})
	require.NoError(t, err)
	got, err := loaded.Predict([][]float64{{0.1, 0.2, 0.3, 0.4}})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestArtifactLinear(t *testing.T) {
	raw := `{"type":"linear","feature_count":2,"model":{"weights":[1,1],"bias":0,"link":"logistic"}}`
	predictor, err := DecodeArtifact(strings.NewReader(raw))
	require.NoError(t, err)
	out, err := predictor.Predict([][]float64{{1, 1}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, out)
}

func TestArtifactLegacyNodeArray(t *testing.T) {
	raw := `[{"feature_idx":0,"threshold":0.5,"left_child":1,"right_child":2},
		{"feature_idx":-1,"left_child":-1,"right_child":-1,"class_label":3,"is_leaf":true},
		{"feature_idx":-1,"left_child":-1,"right_child":-1,"class_label":7,"is_leaf":true}]`
	predictor, err := DecodeArtifact(strings.NewReader(raw))
	require.NoError(t, err)
	out, err := predictor.Predict([][]float64{{0.9}})
	require.NoError(t, err)
	assert.Equal(t, []float64{7}, out)
}

func TestArtifactRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"garbage":        "\x80\x04pickle",
		"unknown family": `{"type":"random_forest","model":{}}`,
		"no payload":     `{"type":"linear"}`,
		"width mismatch": `{"type":"linear","feature_count":3,"model":{"weights":[1,2]}}`,
		"empty tree":     `{"type":"decision_tree","model":[]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeArtifact(strings.NewReader(raw))
			assert.Error(t, err)
		})
	}
}

func TestArtifactUnknownFamilySentinel(t *testing.T) {
	_, err := DecodeArtifact(strings.NewReader(`{"type":"svm","model":{}}`))
	assert.ErrorIs(t, err, ErrUnknownFamily)
}

func TestEncodeArtifactRejectsUntrained(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, EncodeArtifact(&buf, &DecisionTree{}), ErrModelNotTrained)
}

func TestLoadModelMissingFile(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
