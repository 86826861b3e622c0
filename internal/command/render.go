package command

import (
	"strconv"
	"strings"
)

const failurePrefix = "Request failed: "

// Render 生成写回终端的文本。
//
// Success 总是以一个换行开头，正文原样输出；Failure 不加前导换行，
// 仅当 Errno 非 0 时追加 "\n" + ErrString。两种分支的换行不对称是有意保留的。
func Render(resp Response) string {
	if body, ok := resp.Body(); ok {
		return "\n" + body
	}
	f, _ := resp.Failure()
	var b strings.Builder
	b.WriteString(failurePrefix)
	b.WriteString(strconv.Itoa(f.StatusCode))
	b.WriteByte(' ')
	b.WriteString(f.StatusText)
	if f.Errno != 0 {
		b.WriteByte('\n')
		b.WriteString(f.ErrString)
	}
	return b.String()
}
