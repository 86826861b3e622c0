package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"ggh-shell/internal/command"

	"github.com/google/uuid"
)

func execMain(root rootArgs, args []string) {
	os.Exit(execCode(root, args, os.Stdout, os.Stderr))
}

// execCode 运行 exec 并返回进程退出码：0 成功，1 Failure，2 用法或配置错误。
func execCode(root rootArgs, args []string, stdout, stderr io.Writer) int {
	code, err := runExec(root, args, stdout, stderr)
	if err != nil {
		reportFailure(stderr, "exec: "+err.Error())
	}
	return code
}

// runExec 发送一条命令并打印渲染结果。返回退出码：Failure 为 1。
func runExec(root rootArgs, args []string, stdout, stderr io.Writer) (int, error) {
	fs := flag.NewFlagSet("exec", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var conn connectionArgs
	var overrides stringSlice
	conn.register(fs)
	fs.Var(&overrides, "c", "Override config value key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 2, err
	}
	line := command.NormalizeLine(strings.Join(fs.Args(), " "))
	if line == "" {
		return 2, errors.New("usage: ggh-shell exec [flags] <command line...>")
	}

	cfg, err := loadConfig(conn, prependOverrides(root.overrides, overrides))
	if err != nil {
		return 2, err
	}
	closeLog := setupLogging(cfg, true)
	defer closeLog()

	tr, err := newTransport(cfg)
	if err != nil {
		return 2, err
	}
	ctx := command.WithRequestID(context.Background(), uuid.NewString())
	resp := tr.Send(ctx, command.NewRequest(cfg.Endpoint, line))

	rendered := command.Render(resp)
	if resp.Kind() == command.KindSuccess {
		// 终端里的前导换行用于另起一行，这里不需要。
		writeLine(stdout, strings.TrimPrefix(rendered, "\n"))
		return 0, nil
	}
	writeLine(stderr, rendered)
	return 1, nil
}

// writeLine 输出 text，并保证以换行结尾。
func writeLine(w io.Writer, text string) {
	if text == "" || strings.HasSuffix(text, "\n") {
		_, _ = io.WriteString(w, text)
		return
	}
	_, _ = fmt.Fprintln(w, text)
}
