package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func execute(ctx context.Context, args []string) error {
	root, cleanup := newRootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if cerr := cleanup(); err == nil {
		err = cerr
	}
	return err
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := execute(ctx, os.Args[1:]); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
