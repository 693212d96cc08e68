package inference

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Request 预测请求
type Request struct {
	Features []float64
}

// Response 预测响应
type Response struct {
	Prediction   []float64 `json:"prediction"`
	ModelVersion string    `json:"model_version"`
}

// HealthStatus 健康检查响应
type HealthStatus struct {
	Status string `json:"status"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}

// DecodeRequest 解析预测请求体，支持UTF-8/UTF-16 BOM，忽略features以外的字段
func DecodeRequest(body io.Reader) (*Request, error) {
	if body == nil {
		return nil, ErrEmptyBody
	}
	reader := transform.NewReader(body, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	dec := json.NewDecoder(reader)

	var payload map[string]json.RawMessage
	if err := dec.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyBody
		}
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	var trailing json.RawMessage
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid JSON body: unexpected data after top-level object")
	}
	if payload == nil {
		return nil, errors.New("request body must be a JSON object")
	}

	raw, ok := payload["features"]
	if !ok {
		return nil, ErrMissingFeatures
	}
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return nil, errors.New("features must be an array of numbers, got null")
	}
	features, err := decodeFeatures(raw)
	if err != nil {
		return nil, err
	}
	if len(features) == 0 {
		return nil, errors.New("features must not be empty")
	}
	return &Request{Features: features}, nil
}

// decodeFeatures 接受数值数组，或等长数值行组成的二维数组（按行展开）
func decodeFeatures(raw json.RawMessage) ([]float64, error) {
	var features []float64
	err := json.Unmarshal(raw, &features)
	if err == nil {
		return features, nil
	}

	var rows [][]float64
	if json.Unmarshal(raw, &rows) != nil || len(rows) == 0 {
		return nil, fmt.Errorf("features must be an array of numbers: %w", err)
	}
	width := len(rows[0])
	flat := make([]float64, 0, width*len(rows))
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("features row %d has %d values, expected %d", i, len(row), width)
		}
		flat = append(flat, row...)
	}
	return flat, nil
}

// Reshape 把单个样本转换为单行批次
func Reshape(features []float64) [][]float64 {
	row := make([]float64, len(features))
	copy(row, features)
	return [][]float64{row}
}
