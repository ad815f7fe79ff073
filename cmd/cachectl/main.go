// Command cachectl inspects and maintains a cache through a configured
// cacheaside Service.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(out)
	err := root.ExecuteContext(ctx)
	if cerr := a.close(context.WithoutCancel(ctx)); err == nil {
		err = cerr
	}
	return err
}
