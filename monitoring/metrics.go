package monitoring

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricType 指标类型
type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
	MetricTypeSummary MetricType = "summary"
)

const (
	MetricPredictRequests = "predict_requests"
	MetricPredictSuccess  = "predict_success"
	MetricPredictLatency  = "predict_latency_ms"
)

// Summary 数值分布摘要
type Summary struct {
	Count   int64   `json:"count"`
	Sum     float64 `json:"sum"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Latest  float64 `json:"latest"`
	Average float64 `json:"average"`
}

func (s *Summary) observe(value float64) {
	if s.Count == 0 || value < s.Min {
		s.Min = value
	}
	if s.Count == 0 || value > s.Max {
		s.Max = value
	}
	s.Count++
	s.Sum += value
	s.Latest = value
	s.Average = s.Sum / float64(s.Count)
}

// Snapshot 指标快照
type Snapshot struct {
	Uptime     string             `json:"uptime"`
	Goroutines int                `json:"goroutines"`
	Counters   map[string]float64 `json:"counters"`
	Gauges     map[string]float64 `json:"gauges"`
	Summaries  map[string]Summary `json:"summaries"`
}

// MetricsCollector 指标收集器
type MetricsCollector struct {
	metricsLock sync.RWMutex
	counters    map[string]float64
	summaries   map[string]*Summary
	gauges      map[string]func() float64
	help        map[string]string

	startTime time.Time
}

// NewMetricsCollector 创建指标收集器
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:  make(map[string]float64),
		summaries: make(map[string]*Summary),
		gauges:    make(map[string]func() float64),
		help:      make(map[string]string),
		startTime: time.Now(),
	}
}

// IncrCounter 增加计数器
func (mc *MetricsCollector) IncrCounter(name string, value float64) {
	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()
	mc.counters[name] += value
}

// Observe 记录一个观测值
func (mc *MetricsCollector) Observe(name string, value float64) {
	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()

	summary, ok := mc.summaries[name]
	if !ok {
		summary = &Summary{}
		mc.summaries[name] = summary
	}
	summary.observe(value)
}

// RegisterGauge 注册按需读取的仪表
func (mc *MetricsCollector) RegisterGauge(name, help string, read func() float64) {
	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()
	mc.gauges[name] = read
	mc.help[name] = help
}

// RecordPrediction 记录一次预测请求的结果。outcome为空表示成功。
func (mc *MetricsCollector) RecordPrediction(outcome string, latency time.Duration) {
	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()

	mc.counters[MetricPredictRequests]++
	if outcome == "" {
		mc.counters[MetricPredictSuccess]++
	} else {
		mc.counters["predict_"+outcome]++
	}

	summary, ok := mc.summaries[MetricPredictLatency]
	if !ok {
		summary = &Summary{}
		mc.summaries[MetricPredictLatency] = summary
	}
	summary.observe(float64(latency.Microseconds()) / 1000)
}

// Counter 读取计数器
func (mc *MetricsCollector) Counter(name string) float64 {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()
	return mc.counters[name]
}

// GetMetricSummary 获取指标摘要
func (mc *MetricsCollector) GetMetricSummary(name string) (Summary, error) {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	summary, ok := mc.summaries[name]
	if !ok {
		return Summary{}, fmt.Errorf("metric %s not found", name)
	}
	return *summary, nil
}

// GetUptime 获取运行时间
func (mc *MetricsCollector) GetUptime() time.Duration {
	return time.Since(mc.startTime)
}

// Snapshot 返回所有指标的副本
func (mc *MetricsCollector) Snapshot() Snapshot {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	snapshot := Snapshot{
		Uptime:     mc.GetUptime().Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		Counters:   make(map[string]float64, len(mc.counters)),
		Gauges:     make(map[string]float64, len(mc.gauges)),
		Summaries:  make(map[string]Summary, len(mc.summaries)),
	}
	for name, value := range mc.counters {
		snapshot.Counters[name] = value
	}
	for name, read := range mc.gauges {
		snapshot.Gauges[name] = read()
	}
	for name, summary := range mc.summaries {
		snapshot.Summaries[name] = *summary
	}
	return snapshot
}

// ExportPrometheus 导出Prometheus文本格式
func (mc *MetricsCollector) ExportPrometheus() string {
	snapshot := mc.Snapshot()
	var b strings.Builder

	for _, name := range sortedKeys(snapshot.Counters) {
		writeSample(&b, name, MetricTypeCounter, mc.helpFor(name), snapshot.Counters[name])
	}
	for _, name := range sortedKeys(snapshot.Gauges) {
		writeSample(&b, name, MetricTypeGauge, mc.helpFor(name), snapshot.Gauges[name])
	}
	names := make([]string, 0, len(snapshot.Summaries))
	for name := range snapshot.Summaries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		summary := snapshot.Summaries[name]
		fmt.Fprintf(&b, "# HELP %s %s\n", name, mc.helpFor(name))
		fmt.Fprintf(&b, "# TYPE %s %s\n", name, MetricTypeSummary)
		fmt.Fprintf(&b, "%s_sum %s\n", name, formatValue(summary.Sum))
		fmt.Fprintf(&b, "%s_count %d\n", name, summary.Count)
	}
	return b.String()
}

func (mc *MetricsCollector) helpFor(name string) string {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()
	if help := mc.help[name]; help != "" {
		return help
	}
	return fmt.Sprintf("Metric %s", name)
}

func writeSample(b *strings.Builder, name string, metricType MetricType, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", name, metricType)
	fmt.Fprintf(b, "%s %s\n", name, formatValue(value))
}

func formatValue(value float64) string {
	if value == math.Trunc(value) && math.Abs(value) < 1e15 {
		return fmt.Sprintf("%d", int64(value))
	}
	return fmt.Sprintf("%g", value)
}

func sortedKeys(values map[string]float64) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
