package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ggh-shell/internal/command"
	"ggh-shell/internal/config"
	"ggh-shell/internal/history"
	"ggh-shell/internal/logger"
	"ggh-shell/internal/screen"
	"ggh-shell/internal/session"
	"ggh-shell/internal/transport"
	"ggh-shell/internal/tui"

	"golang.org/x/term"
)

// version 可在构建时通过 -ldflags "-X main.version=..." 覆盖。
var version = "dev"

var log = logger.Named("cli")

// logToFile 在日志写入文件后为 true；此前日志与错误提示都在 stderr 上。
var logToFile bool

func main() {
	logger.Configure("")
	if err := config.LoadEnvFile(".env"); err != nil {
		log.Warnf("failed to load .env: %v", err)
	}

	root, rest, err := parseRootArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("parse args: %v", err)
	}
	if len(rest) > 0 {
		switch rest[0] {
		case "exec":
			execMain(root, rest[1:])
			return
		case "ping":
			pingMain(root, rest[1:])
			return
		case "serve":
			serveMain(root, rest[1:])
			return
		case "version":
			fmt.Printf("ggh-shell %s\n", version)
			return
		}
	}

	runInteractive(root, rest)
}

func runInteractive(root rootArgs, args []string) {
	fs, cli := newInteractiveFlagSet("ggh-shell")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse args: %v", err)
	}
	cli.finalizeExec(fs)
	cli.configOverrides = stringSlice(prependOverrides(root.overrides, []string(cli.configOverrides)))

	cfg, err := loadConfig(cli.connection, []string(cli.configOverrides))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	closeLog := setupLogging(cfg, true)
	defer closeLog()

	tr, err := newTransport(cfg)
	if err != nil {
		exitf("init transport: %v", err)
	}
	var store *history.Store
	if !cli.noHistory {
		if store, err = history.Open(cfg.HistoryPath); err != nil {
			log.Warnf("history disabled: %v", err)
			store = nil
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stdinTTY := term.IsTerminal(int(os.Stdin.Fd()))
	stdoutTTY := term.IsTerminal(int(os.Stdout.Fd()))
	if cli.plain || !stdinTTY || !stdoutTTY {
		if stdinTTY && cfg.Greeting != "" {
			fmt.Fprintln(os.Stdout, cfg.Greeting)
		}
		err := runPlainSession(ctx, cfg, tr, store, plainIO{in: os.Stdin, out: os.Stdout, errOut: os.Stderr, echo: !stdinTTY}, []string(cli.exec))
		if err != nil && ctx.Err() == nil {
			exitf("%v", err)
		}
		return
	}

	res, err := tui.Run(tui.Options{
		Transport: tr,
		Target:    cfg.Endpoint,
		Endpoint:  strings.TrimRight(cfg.URL, "/") + cfg.Endpoint,
		Prompt:    cfg.Prompt,
		Greeting:  cfg.Greeting,
		Exec:      []string(cli.exec),
		History:   store,
		Context:   ctx,
		Inline:    cli.inline,
	})
	if err != nil && ctx.Err() == nil {
		exitf("tui: %v", err)
	}
	log.WithField("session_id", res.SessionID).Info("interactive session ended")
}

type plainIO struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	echo   bool
}

// runPlainSession 在行模式终端上运行会话；-e 的行先提交，然后读取输入。
func runPlainSession(ctx context.Context, cfg config.Config, tr command.Transport, store *history.Store, pio plainIO, exec []string) error {
	queue := &session.Queue{}
	shell := session.NewShell(session.Options{
		Target:    cfg.Endpoint,
		Transport: tr,
		Context:   ctx,
		OnDispatch: func(p *session.Pending) {
			queue.Push(p)
			if store != nil {
				if err := store.Append(p.Request.Line, p.SessionID); err != nil {
					log.WithField("op", "history").Warnf("append history: %v", err)
				}
			}
		},
	}, session.NotifierFunc(func(msg string) {
		fmt.Fprintln(pio.errOut, msg)
	}))
	surface := screen.NewPlain(pio.out, screen.PlainOptions{Prompt: cfg.Prompt, Echo: pio.echo})
	return screen.RunPlain(ctx, pio.in, shell, surface, queue, exec...)
}

func loadConfig(conn connectionArgs, overrides []string) (config.Config, error) {
	cfg, err := config.Load(conn.cfgPath)
	if err != nil {
		return config.Config{}, err
	}
	cfg = config.ApplyKVOverrides(cfg, overrides)
	if v := strings.TrimSpace(conn.url); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(conn.token); v != "" {
		cfg.Token = v
	}
	if conn.timeoutSeconds > 0 {
		cfg.TimeoutSeconds = conn.timeoutSeconds
	}
	return cfg, nil
}

// setupLogging 按配置设置日志级别；toFile 为 true 时日志只写文件，不占用终端。
func setupLogging(cfg config.Config, toFile bool) func() {
	logger.Configure(cfg.LogLevel)
	if !toFile {
		logger.Root().SetOutput(os.Stderr)
		return func() {}
	}
	logFile, _, err := logger.SetupFile(cfg.LogPath)
	if err != nil {
		log.Warnf("failed to initialize log file: %v", err)
		logger.Root().SetOutput(io.Discard)
		return func() {}
	}
	logToFile = true
	return func() {
		logToFile = false
		logger.Root().SetOutput(os.Stderr)
		_ = logFile.Close()
	}
}

func newTransport(cfg config.Config) (*transport.HTTP, error) {
	return transport.NewHTTP(transport.Options{
		BaseURL:   cfg.URL,
		Param:     cfg.Param,
		Token:     cfg.Token,
		Timeout:   cfg.Timeout(),
		UserAgent: "ggh-shell/" + version,
	})
}

func exitf(format string, args ...any) {
	reportFailure(os.Stderr, fmt.Sprintf(format, args...))
	os.Exit(1)
}

// reportFailure 向用户输出错误；日志写文件时同时记一条 error。
func reportFailure(w io.Writer, msg string) {
	if logToFile {
		log.Error(msg)
	}
	fmt.Fprintln(w, "ggh-shell: "+msg)
}
