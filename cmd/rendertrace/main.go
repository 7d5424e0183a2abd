package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rendertrace/internal/app"
	"rendertrace/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Bootstrap logger for failures before the log service exists.
	boot := logx.NewConsole("INFO")

	a, err := app.New(cfgPath)
	if err != nil {
		boot.Error("startup failed", logx.Err(err))
		os.Exit(1)
	}

	if err := a.Start(ctx); err != nil {
		boot.Error("start failed", logx.Err(err))
		os.Exit(1)
	}

	select {
	case <-ctx.Done():
	case <-a.Done():
		if err := a.Err(); err != nil {
			boot.Error("runtime failure", logx.Err(err))
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx)
}
