package main

import (
	"errors"
	"strings"
)

type rootArgs struct {
	overrides []string
}

// parseRootArgs 提取子命令之前的 -c key=value，其余参数原样保留给子命令或交互入口。
// 遇到第一个非 flag 参数即停止提取。
func parseRootArgs(args []string) (rootArgs, []string, error) {
	var root rootArgs
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-c" || arg == "--c":
			if i+1 >= len(args) {
				return rootArgs{}, nil, errors.New("flag needs an argument: -c")
			}
			root.overrides = append(root.overrides, args[i+1])
			i++
		case strings.HasPrefix(arg, "-c=") || strings.HasPrefix(arg, "--c="):
			root.overrides = append(root.overrides, arg[strings.Index(arg, "=")+1:])
		case arg == "--" || !strings.HasPrefix(arg, "-"):
			if len(rest) == 0 {
				return root, append(rest, args[i:]...), nil
			}
			rest = append(rest, arg)
		default:
			rest = append(rest, arg)
		}
	}
	return root, rest, nil
}

func prependOverrides(root []string, overrides []string) []string {
	merged := append([]string{}, root...)
	return append(merged, overrides...)
}
