// Package main 众包任务管理命令行入口
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"crowdtasks-admin/internal/config"
)

const usage = `Usage: crowdtasks [-config DIR] <command> [flags]

Commands:
  register       register a task (root or cloned from a parent)
  add-requester  create a requester identity
  start-run      start a run of a task
  status         count or list assignments of a run or task
  spend          show spend of a task
  study-url      print the external study URL with participant placeholders
  archive        upload a run directory to object storage
  serve-metrics  expose Prometheus metrics for all tasks
  events         list lifecycle events (requires redis.url / REDIS_URL)
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "crowdtasks: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	global := flag.NewFlagSet("crowdtasks", flag.ContinueOnError)
	global.SetOutput(out)
	global.Usage = func() { fmt.Fprint(out, usage) }
	configDir := global.String("config", "", "配置文件目录（或 YAML 文件路径）")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return flag.ErrHelp
	}

	if *configDir != "" {
		dir := *configDir
		if strings.HasSuffix(dir, ".yaml") || strings.HasSuffix(dir, ".yml") {
			dir = filepath.Dir(dir)
		}
		config.SetConfigDir(dir)
	}

	name, rest := global.Arg(0), global.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		global.Usage()
		return fmt.Errorf("unknown command %q", name)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, in, out)
	if err != nil {
		return err
	}
	defer a.Close()

	return cmd(ctx, a, rest)
}
