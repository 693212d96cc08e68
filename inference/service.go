package inference

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"go.uber.org/zap"

	"modelserve/config"
	"modelserve/ml"
)

type requestIDKey struct{}

// WithRequestID 把请求ID写入ctx
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID 读取ctx中的请求ID
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Result 预测结果，附带审计和推送所需的信息
type Result struct {
	Response
	Features []float64
	Family   string
	Latency  time.Duration
}

// Service 推理服务
type Service struct {
	loader ml.Loader
	logger *zap.Logger
}

// NewService 创建推理服务
func NewService(loader ml.Loader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{loader: loader, logger: logger}
}

// Health 健康检查
func (s *Service) Health() HealthStatus {
	return HealthStatus{Status: "healthy"}
}

// Predict 先加载模型再解析请求体，模型不可用优先于输入错误；失败统一返回*Fault
func (s *Service) Predict(ctx context.Context, settings config.Settings, body io.Reader) (*Result, error) {
	start := time.Now()
	logger := s.logger.With(zap.String("request_id", RequestID(ctx)))

	predictor, ok := s.loader.Load(settings.ModelPath)
	if !ok {
		logger.Warn("model unavailable", zap.String("path", settings.ModelPath))
		return nil, &Fault{Kind: Unavailable, Message: MessageModelNotLoaded}
	}

	request, err := DecodeRequest(body)
	if err != nil {
		logger.Warn("prediction request rejected", zap.Error(err))
		return nil, newFault(BadInput, err)
	}

	prediction, err := invoke(predictor, Reshape(request.Features))
	if err != nil {
		logger.Warn("prediction error",
			zap.String("family", predictor.Family()),
			zap.Int("feature_count", len(request.Features)),
			zap.Error(err),
		)
		return nil, newFault(PredictionFault, err)
	}

	return &Result{
		Response: Response{
			Prediction:   prediction,
			ModelVersion: settings.ModelVersion,
		},
		Features: request.Features,
		Family:   predictor.Family(),
		Latency:  time.Since(start),
	}, nil
}

func invoke(predictor ml.Predictor, batch [][]float64) (out []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("predictor panicked: %v", r)
		}
	}()
	raw, err := predictor.Predict(batch)
	if err != nil {
		return nil, err
	}
	if len(raw) != len(batch) {
		return nil, fmt.Errorf("predictor returned %d outputs for %d rows", len(raw), len(batch))
	}
	out = make([]float64, len(raw))
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("prediction %d is not a finite number", i)
		}
		out[i] = v
	}
	return out, nil
}
