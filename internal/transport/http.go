package transport

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ggh-shell/internal/command"
	"ggh-shell/internal/logger"

	"github.com/go-resty/resty/v2"
)

// DefaultParam 是承载命令行的查询参数名。
const DefaultParam = "cmd"

// 传输层故障折叠进 Failure 时使用的扩展错误号。
const (
	ErrnoNetwork  = 1
	ErrnoTimeout  = 2
	ErrnoCanceled = 3
)

// Options 配置 HTTP 命令传输。
type Options struct {
	BaseURL string
	// Param 为查询参数名，默认 cmd。
	Param string
	Token string
	// Timeout 为 0 表示不设超时。
	Timeout   time.Duration
	UserAgent string
	// Client 可注入自定义 http.Client（测试用）。
	Client *http.Client
	Log    *logger.LogEntry
}

// HTTP 通过 GET <base><target>?<param>=<line> 发送命令。
// 这一层不做重试。
type HTTP struct {
	client *resty.Client
	param  string
	log    *logger.LogEntry
}

// NewHTTP 创建基于 resty 的命令传输。
func NewHTTP(opts Options) (*HTTP, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("transport base url is empty")
	}
	param := strings.TrimSpace(opts.Param)
	if param == "" {
		param = DefaultParam
	}
	log := opts.Log
	if log == nil {
		log = logger.Named("transport")
	}
	var rc *resty.Client
	if opts.Client != nil {
		rc = resty.NewWithClient(opts.Client)
	} else {
		rc = resty.New()
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "ggh-shell"
	}
	rc.SetBaseURL(base).
		SetLogger(log).
		SetRetryCount(0).
		SetHeader("User-Agent", ua).
		SetHeader("Accept", "text/plain, application/json")
	if opts.Timeout > 0 {
		rc.SetTimeout(opts.Timeout)
	}
	if token := strings.TrimSpace(opts.Token); token != "" {
		rc.SetAuthToken(token)
	}
	return &HTTP{client: rc, param: param, log: log}, nil
}

// Send 实现 command.Transport。非 2xx 映射为 Failure{状态码, 状态描述}；
// 网络错误、超时与取消映射为带 Errno 的 Failure。
func (h *HTTP) Send(ctx context.Context, req command.Request) command.Response {
	start := time.Now()
	r := h.client.R().
		SetContext(ctx).
		SetQueryParam(h.param, req.Line)
	reqID := command.RequestID(ctx)
	if reqID != "" {
		r.SetHeader("X-Request-ID", reqID)
	}
	entry := h.log.WithFields(logger.Fields{
		"op":         "send",
		"request_id": reqID,
		"target":     req.Target,
	})

	resp, err := r.Get(req.Target)
	if err != nil {
		f := failureFromError(ctx, err)
		entry.WithField("errno", f.Errno).Warnf("command request failed: %v", err)
		return command.Fail(f)
	}
	entry = entry.WithFields(logger.Fields{
		"status":  resp.StatusCode(),
		"elapsed": time.Since(start).Round(time.Millisecond),
	})
	if !resp.IsSuccess() {
		entry.Info("command request returned non-success status")
		return command.Fail(command.Failure{
			StatusCode: resp.StatusCode(),
			StatusText: statusText(resp.StatusCode(), resp.Status()),
		})
	}
	entry.Debug("command request completed")
	// resp.String() 会去掉首尾空白，正文必须原样返回。
	return command.Success(string(resp.Body()))
}

// statusText 取出状态行中的原因短语，取不到时退回标准文本。
func statusText(code int, status string) string {
	status = strings.TrimSpace(status)
	if rest, ok := strings.CutPrefix(status, strconv.Itoa(code)); ok {
		if text := strings.TrimSpace(rest); text != "" {
			return text
		}
	}
	return http.StatusText(code)
}

func failureFromError(ctx context.Context, err error) command.Failure {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return command.Failure{StatusText: "Canceled", Errno: ErrnoCanceled, ErrString: err.Error()}
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		return command.Failure{StatusText: "Timeout", Errno: ErrnoTimeout, ErrString: err.Error()}
	default:
		return command.Failure{StatusText: "Network Error", Errno: ErrnoNetwork, ErrString: err.Error()}
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
