package ml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Artifact 模型文件格式，Type决定模型类型，Model为对应类型的数据
type Artifact struct {
	Type         string          `json:"type"`
	FeatureCount int             `json:"feature_count,omitempty"`
	Model        json.RawMessage `json:"model"`
}

type decodeFunc func(payload json.RawMessage, featureCount int) (Predictor, error)

var decoders = map[string]decodeFunc{
	FamilyDecisionTree: decodeDecisionTree,
	FamilyLinear:       decodeLinear,
}

// LoadModel 读取并校验模型文件
func LoadModel(path string) (Predictor, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return DecodeArtifact(file)
}

// DecodeArtifact 解码模型文件
func DecodeArtifact(r io.Reader) (Predictor, error) {
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, fmt.Errorf("artifact is empty")
	}

	// 旧格式：直接保存的节点数组
	if payload[0] == '[' {
		return decodeDecisionTree(payload, 0)
	}

	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	decode, ok := decoders[artifact.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, artifact.Type)
	}
	if len(artifact.Model) == 0 {
		return nil, fmt.Errorf("artifact %s has no model payload", artifact.Type)
	}
	return decode(artifact.Model, artifact.FeatureCount)
}

// EncodeArtifact 编码模型文件
func EncodeArtifact(w io.Writer, predictor Predictor) error {
	var artifact Artifact
	var model any
	switch p := predictor.(type) {
	case *DecisionTree:
		if err := p.Validate(); err != nil {
			return err
		}
		model = p.nodes
		artifact.FeatureCount = p.featureCount
	case *LinearModel:
		if err := p.Validate(); err != nil {
			return err
		}
		model = p
		artifact.FeatureCount = len(p.Weights)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownFamily, predictor)
	}
	raw, err := json.Marshal(model)
	if err != nil {
		return err
	}
	artifact.Type = predictor.Family()
	artifact.Model = raw
	return json.NewEncoder(w).Encode(artifact)
}

// SaveArtifact 保存模型文件
func SaveArtifact(path string, predictor Predictor) error {
	var buf bytes.Buffer
	if err := EncodeArtifact(&buf, predictor); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

func decodeDecisionTree(payload json.RawMessage, featureCount int) (Predictor, error) {
	var nodes []TreeNode
	if err := json.Unmarshal(payload, &nodes); err != nil {
		return nil, fmt.Errorf("decode decision tree: %w", err)
	}
	tree, err := NewDecisionTree(nodes, featureCount)
	if err != nil {
		return nil, fmt.Errorf("invalid decision tree: %w", err)
	}
	return tree, nil
}

func decodeLinear(payload json.RawMessage, featureCount int) (Predictor, error) {
	var model LinearModel
	if err := json.Unmarshal(payload, &model); err != nil {
		return nil, fmt.Errorf("decode linear model: %w", err)
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid linear model: %w", err)
	}
	if featureCount > 0 && featureCount != len(model.Weights) {
		return nil, fmt.Errorf("invalid linear model: feature_count %d does not match %d weights", featureCount, len(model.Weights))
	}
	return &model, nil
}
