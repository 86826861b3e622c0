package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"ggh-shell/internal/command"

	"github.com/google/uuid"
)

func pingMain(root rootArgs, args []string) {
	if err := runPing(root, args, os.Stdout); err != nil {
		exitf("ping failed: %v", err)
	}
}

// runPing 发送 ping 并期望收到 pong；未配置超时时默认 10 秒。
func runPing(root rootArgs, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("ping", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var conn connectionArgs
	conn.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(conn, prependOverrides(root.overrides, nil))
	if err != nil {
		return err
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 10
	}
	closeLog := setupLogging(cfg, true)
	defer closeLog()

	tr, err := newTransport(cfg)
	if err != nil {
		return err
	}
	start := time.Now()
	ctx := command.WithRequestID(context.Background(), uuid.NewString())
	resp := tr.Send(ctx, command.NewRequest(cfg.Endpoint, "ping"))
	body, ok := resp.Body()
	if !ok {
		return fmt.Errorf("%s", command.Render(resp))
	}
	if body != "pong" {
		return fmt.Errorf("unexpected reply %q", body)
	}
	_, _ = fmt.Fprintf(out, "ok: %s (%s)\n", body, time.Since(start).Round(time.Millisecond))
	return nil
}
