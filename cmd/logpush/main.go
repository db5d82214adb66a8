package main

import (
	"context"
	"logpush/internal/cli"
	"os"
)

func main() {
	os.Exit(cli.Run(context.Background(), os.Args, os.Stdout, os.Stderr))
}
