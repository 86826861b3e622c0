package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"ggh-shell/internal/logger"
	"ggh-shell/internal/procserver"
)

func serveMain(root rootArgs, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := runServe(ctx, root, args); err != nil {
		exitf("serve: %v", err)
	}
}

func runServe(ctx context.Context, root rootArgs, args []string) error {
	srv, err := newServer(root, args)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// newServer 解析 serve 参数并构造命令端点；日志输出到 stderr。
func newServer(root rootArgs, args []string) (*procserver.Server, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var cfgPath string
	var listen string
	var origins csvSlice
	var overrides stringSlice
	fs.StringVar(&cfgPath, "config", "", "Path to config file (default ~/.ggh/shell.toml)")
	fs.StringVar(&listen, "listen", "", "Listen address (default from config, 127.0.0.1:8080)")
	fs.Var(&origins, "cors-origin", "Allowed CORS origin (comma separated or repeatable; default any)")
	fs.Var(&overrides, "c", "Override config value key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := loadConfig(connectionArgs{cfgPath: cfgPath}, prependOverrides(root.overrides, overrides))
	if err != nil {
		return nil, err
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if len(origins) > 0 {
		cfg.CORSOrigins = []string(origins)
	}
	setupLogging(cfg, false)

	return procserver.New(procserver.Options{
		Listen:      cfg.Listen,
		Path:        cfg.Endpoint,
		Param:       cfg.Param,
		CORSOrigins: cfg.CORSOrigins,
		Registry:    procserver.DefaultRegistry(version, nil),
		Log:         logger.Named("procserver"),
	})
}
