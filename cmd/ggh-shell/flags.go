package main

import (
	"flag"
	"strings"
)

type stringSlice []string

func (s *stringSlice) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSlice) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type csvSlice []string

func (s *csvSlice) String() string {
	return strings.Join(*s, ",")
}

func (s *csvSlice) Set(v string) error {
	parts := strings.Split(v, ",")
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			*s = append(*s, trimmed)
		}
	}
	return nil
}

// connectionArgs 是各个入口共用的端点与配置参数。
type connectionArgs struct {
	cfgPath        string
	url            string
	token          string
	timeoutSeconds int
}

func (c *connectionArgs) register(fs *flag.FlagSet) {
	fs.StringVar(&c.cfgPath, "config", "", "Path to config file (default ~/.ggh/shell.toml)")
	fs.StringVar(&c.url, "url", "", "Endpoint base URL (default from config, e.g. http://127.0.0.1:8080)")
	fs.StringVar(&c.token, "token", "", "Bearer token sent with every request (prefer config or GGH_SHELL_TOKEN)")
	fs.IntVar(&c.timeoutSeconds, "timeout", 0, "Request timeout in seconds (default from config, 0 = none)")
}
