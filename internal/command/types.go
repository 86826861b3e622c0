package command

import (
	"context"
	"strings"
	"unicode"
)

// DefaultTarget 是命令请求的固定逻辑端点。
const DefaultTarget = "/proc"

// NormalizeLine 去掉行首空白，其余部分原样保留（不做引号或转义处理）。
func NormalizeLine(raw string) string {
	return strings.TrimLeftFunc(raw, unicode.IsSpace)
}

// Args 按连续空白切分命令行，下标 0 约定为命令名。
func Args(line string) []string {
	return strings.Fields(line)
}

// Request 是由一行命令派生出的出站请求。
type Request struct {
	Target string
	Line   string
}

// NewRequest 构造发往 target 的请求；line 作为唯一参数，整行不切分。
func NewRequest(target, line string) Request {
	return Request{Target: target, Line: line}
}

// Kind 标识 Response 的变体。
type Kind int

const (
	KindSuccess Kind = iota
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Failure 描述一次失败的请求。Errno 非 0 表示带有扩展错误信息。
type Failure struct {
	StatusCode int
	StatusText string
	Errno      int
	ErrString  string
}

// Response 是一次请求的结果，Success 与 Failure 二选一。
type Response struct {
	kind    Kind
	body    string
	failure Failure
}

// Success 构造成功响应，body 可为空或多行。
func Success(body string) Response {
	return Response{kind: KindSuccess, body: body}
}

// Fail 构造失败响应。
func Fail(f Failure) Response {
	return Response{kind: KindFailure, failure: f}
}

func (r Response) Kind() Kind { return r.kind }

// Body 返回成功响应的正文；第二个返回值表示是否为 Success。
func (r Response) Body() (string, bool) {
	if r.kind != KindSuccess {
		return "", false
	}
	return r.body, true
}

// Failure 返回失败信息；第二个返回值表示是否为 Failure。
func (r Response) Failure() (Failure, bool) {
	if r.kind != KindFailure {
		return Failure{}, false
	}
	return r.failure, true
}

// Transport 抽象“发送请求、取回响应”的能力。
// 传输层故障以 Failure 值返回，而不是 error。
type Transport interface {
	Send(ctx context.Context, req Request) Response
}

// TransportFunc 让普通函数满足 Transport。
type TransportFunc func(ctx context.Context, req Request) Response

func (f TransportFunc) Send(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

type requestIDKey struct{}

// WithRequestID 在 ctx 中附带请求 id。
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID 返回 ctx 中携带的请求 id，传输层用它设置请求头。
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
