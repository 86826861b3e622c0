package procserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"unicode"
)

var (
	errCommandExists  = errors.New("command already registered")
	errInvalidCommand = errors.New("invalid command")
)

const (
	// NotFoundReply 是未知命令的回复。
	NotFoundReply = "Command not found.\n"
	// LookupMissReply 是反向解析没有结果时的回复。
	LookupMissReply = "Not found"
	// LookupUsageReply 是 dnslookup 缺少地址时的回复。
	LookupUsageReply = "50m37h1ng w3n7 wr0ng."
)

// Reply 是一条命令的输出。ContentType 为空时按纯文本返回。
type Reply struct {
	Body        string
	ContentType string
}

func Text(body string) Reply { return Reply{Body: body} }

// Handler 执行命令；args 是命令名和一个空格之后的剩余部分，原样传入。
type Handler func(ctx context.Context, args string) (Reply, error)

// Command 描述一个可执行命令。Usage 为空时使用 Name。
type Command struct {
	Name  string
	Usage string
	Help  string
	// TakesArgs 为 false 时只匹配整行等于 Name。
	TakesArgs bool
	Run       Handler
}

// Registry 按名字保存命令，并把一行输入分派给匹配的命令。
type Registry struct {
	commands map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register 添加命令；名字必须唯一。
func (r *Registry) Register(cmd Command) error {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return fmt.Errorf("command name is empty: %w", errInvalidCommand)
	}
	if cmd.Run == nil {
		return fmt.Errorf("%s: handler is nil: %w", name, errInvalidCommand)
	}
	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("%s: %w", name, errCommandExists)
	}
	cmd.Name = name
	r.commands[name] = cmd
	return nil
}

// Commands 返回按名字排序的命令列表。
func (r *Registry) Commands() []Command {
	out := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Process 执行一行命令。只去掉行首空白，命令名必须完整匹配，
// 因此 "ping " 不是 ping。空行返回空回复，没有匹配的命令返回 NotFoundReply。
// 最长的命令名优先匹配。
func (r *Registry) Process(ctx context.Context, line string) (Reply, error) {
	line = strings.TrimLeftFunc(line, unicode.IsSpace)
	if line == "" {
		return Text(""), nil
	}
	var (
		best Command
		args string
		hit  bool
	)
	for name, c := range r.commands {
		if hit && len(name) <= len(best.Name) {
			continue
		}
		switch {
		case line == name:
			best, args, hit = c, "", true
		case c.TakesArgs && strings.HasPrefix(line, name+" "):
			best, args, hit = c, line[len(name)+1:], true
		}
	}
	if !hit {
		return Text(NotFoundReply), nil
	}
	return best.Run(ctx, args)
}

// Resolver 是反向解析能力，*net.Resolver 满足它。
type Resolver interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// DefaultRegistry 注册内置命令：help、ping、version、echo、dnslookup。
func DefaultRegistry(version string, resolver Resolver) *Registry {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	r := NewRegistry()
	builtins := []Command{
		{
			Name: "ping",
			Help: "Reply with pong",
			Run: func(context.Context, string) (Reply, error) {
				return Text("pong"), nil
			},
		},
		{
			Name: "version",
			Help: "Show version of GGH",
			Run: func(context.Context, string) (Reply, error) {
				return Text(version), nil
			},
		},
		{
			Name:      "echo",
			Usage:     "echo TEXT",
			Help:      "Write TEXT back",
			TakesArgs: true,
			Run: func(_ context.Context, args string) (Reply, error) {
				return Text(args), nil
			},
		},
		{
			Name:      "dnslookup",
			Usage:     "dnslookup IP",
			Help:      "Resolve the host name of IP",
			TakesArgs: true,
			Run: func(ctx context.Context, args string) (Reply, error) {
				return dnsLookup(ctx, resolver, args), nil
			},
		},
	}
	for _, c := range builtins {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	help := Command{
		Name: "help",
		Help: "Show this help, how the client is to be used and a list of available commands",
		Run: func(context.Context, string) (Reply, error) {
			return helpReply(r)
		},
	}
	if err := r.Register(help); err != nil {
		panic(err)
	}
	return r
}

func helpReply(r *Registry) (Reply, error) {
	list := make(map[string]string)
	for _, c := range r.Commands() {
		usage := c.Usage
		if usage == "" {
			usage = c.Name
		}
		list[usage] = c.Help
	}
	data, err := json.Marshal(map[string]map[string]string{"Command list": list})
	if err != nil {
		return Reply{}, fmt.Errorf("encode help: %w", err)
	}
	return Reply{Body: string(data), ContentType: "application/json"}, nil
}

func dnsLookup(ctx context.Context, resolver Resolver, ip string) Reply {
	if ip == "" {
		return Text(LookupUsageReply)
	}
	names, err := resolver.LookupAddr(ctx, ip)
	if err != nil || len(names) == 0 {
		return Text(LookupMissReply)
	}
	return Text(strings.TrimSuffix(names[0], "."))
}
