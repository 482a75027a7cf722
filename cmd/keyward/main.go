// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

// Package main is the entry point for the keyward CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/keyward/keyward/pkg/errutil"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], Deps{})
	stop()
	os.Exit(code)
}

// exitError ends the process with code without printing anything further.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// run executes the CLI and returns the process exit status.
func run(ctx context.Context, args []string, deps Deps) int {
	a := newApp(deps)
	cmd := newRootCmd(a)
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if metricsErr := a.writeMetrics(); metricsErr != nil && err == nil {
		err = metricsErr
	}
	if err == nil {
		return 0
	}

	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}

	if a.logger != nil {
		errutil.LogError(ctx, a.logger, "command failed", err)
	}
	fmt.Fprintf(a.deps.Stderr, "Error: %v\n", err)
	return 1
}
