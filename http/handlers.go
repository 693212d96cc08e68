package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"modelserve/config"
	"modelserve/db"
	"modelserve/inference"
	"modelserve/monitoring"
)

// Recorder 预测审计记录接口
type Recorder interface {
	Record(ctx context.Context, record db.PredictionRecord) error
}

// Publisher 预测事件推送接口
type Publisher interface {
	Publish(event monitoring.PredictionEvent)
}

// API HTTP处理器集合
type API struct {
	service   *inference.Service
	source    config.Source
	logger    *zap.Logger
	metrics   *monitoring.MetricsCollector
	recorder  Recorder
	publisher Publisher
	stream    http.Handler
}

// Option API可选项
type Option func(*API)

// WithRecorder 启用预测审计
func WithRecorder(recorder Recorder) Option {
	return func(a *API) { a.recorder = recorder }
}

// WithMetrics 使用指定的指标收集器
func WithMetrics(metrics *monitoring.MetricsCollector) Option {
	return func(a *API) { a.metrics = metrics }
}

// WithStream 启用预测事件推送
func WithStream(hub *monitoring.Hub) Option {
	return func(a *API) {
		a.publisher = hub
		a.stream = http.HandlerFunc(hub.HandleWebSocket)
	}
}

// NewAPI 创建API
func NewAPI(service *inference.Service, source config.Source, logger *zap.Logger, opts ...Option) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	api := &API{
		service: service,
		source:  source,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(api)
	}
	if api.metrics == nil {
		api.metrics = monitoring.NewMetricsCollector()
	}
	return api
}

// RegisterHandlers 注册路由
func (a *API) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("POST /predict", a.handlePredict)
	mux.HandleFunc("GET /metrics", a.handleMetrics)
	if a.stream != nil {
		mux.Handle("GET /ws/predictions", a.stream)
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.service.Health())
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	settings := a.source.Snapshot()

	result, err := a.service.Predict(r.Context(), settings, r.Body)
	if err != nil {
		var fault *inference.Fault
		if !errors.As(err, &fault) {
			fault = &inference.Fault{Kind: inference.BadInput, Message: err.Error(), Err: err}
		}
		a.metrics.RecordPrediction(fault.Kind.String(), time.Since(start))
		writeError(w, fault.Kind.StatusCode(), fault.Message)
		return
	}

	writeJSON(w, http.StatusOK, result.Response)
	a.metrics.RecordPrediction("", time.Since(start))
	a.observe(r.Context(), result)
}

func (a *API) observe(ctx context.Context, result *inference.Result) {
	requestID := inference.RequestID(ctx)
	if a.recorder != nil {
		err := a.recorder.Record(ctx, db.PredictionRecord{
			RequestID:    requestID,
			Features:     result.Features,
			Prediction:   result.Prediction,
			ModelVersion: result.ModelVersion,
			ModelFamily:  result.Family,
			Latency:      result.Latency,
		})
		if err != nil {
			a.logger.Warn("record prediction failed", zap.String("request_id", requestID), zap.Error(err))
		}
	}
	if a.publisher != nil {
		a.publisher.Publish(monitoring.PredictionEvent{
			RequestID:    requestID,
			Prediction:   result.Prediction,
			ModelVersion: result.ModelVersion,
			ModelFamily:  result.Family,
		})
	}
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "prometheus" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(a.metrics.ExportPrometheus()))
		return
	}
	writeJSON(w, http.StatusOK, a.metrics.Snapshot())
}

// writeJSON 先序列化再写状态码，序列化失败时返回500
func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(inference.ErrorResponse{Error: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, inference.ErrorResponse{Error: message})
}
