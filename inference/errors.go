package inference

import (
	"errors"
	"net/http"
)

// MessageModelNotLoaded 模型不可用时返回给客户端的固定消息
const MessageModelNotLoaded = "Model not loaded"

var (
	ErrMissingFeatures = errors.New(`missing required field "features"`)
	ErrEmptyBody       = errors.New("request body is empty")
)

// FaultKind 推理失败类别
type FaultKind int

const (
	// Unavailable 没有可加载的模型文件，原因只记录日志
	Unavailable FaultKind = iota + 1
	// BadInput 请求体格式错误，或features缺失、非数值
	BadInput
	// PredictionFault 模型拒绝输入或输出无效
	PredictionFault
)

func (k FaultKind) String() string {
	switch k {
	case Unavailable:
		return "unavailable"
	case BadInput:
		return "bad_input"
	case PredictionFault:
		return "prediction_fault"
	default:
		return "unknown"
	}
}

// StatusCode 失败类别对应的HTTP状态码，PredictionFault与BadInput同为400
func (k FaultKind) StatusCode() int {
	switch k {
	case Unavailable:
		return http.StatusInternalServerError
	case BadInput, PredictionFault:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Fault 推理失败
type Fault struct {
	Kind    FaultKind
	Message string
	Err     error
}

func (f *Fault) Error() string {
	return f.Message
}

func (f *Fault) Unwrap() error {
	return f.Err
}

func newFault(kind FaultKind, err error) *Fault {
	return &Fault{Kind: kind, Message: err.Error(), Err: err}
}
