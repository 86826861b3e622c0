package main

import (
	"flag"
	"strings"
)

// interactiveArgs captures flags of the interactive entrypoint.
type interactiveArgs struct {
	connection      connectionArgs
	exec            stringSlice
	configOverrides stringSlice
	plain           bool
	inline          bool
	noHistory       bool
}

func newInteractiveFlagSet(name string) (*flag.FlagSet, *interactiveArgs) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	args := &interactiveArgs{}

	args.connection.register(fs)
	fs.Var(&args.exec, "e", "Submit a line right after the terminal opens (repeatable)")
	fs.Var(&args.configOverrides, "c", "Override config value key=value (repeatable)")
	fs.BoolVar(&args.plain, "plain", false, "Use line mode even when stdin is a terminal")
	fs.BoolVar(&args.inline, "inline", false, "Disable alt screen so the transcript stays in the terminal")
	fs.BoolVar(&args.noHistory, "no-history", false, "Do not read or write command history")

	return fs, args
}

// finalizeExec 把剩余的位置参数当作一条要提交的命令行。
func (i *interactiveArgs) finalizeExec(fs *flag.FlagSet) {
	if fs.NArg() > 0 {
		i.exec = append(i.exec, strings.Join(fs.Args(), " "))
	}
}
