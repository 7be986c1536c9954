package main

import (
	"context"
	"fmt"
	"os"

	"showtimes-console/cmd"
)

const appName = "showtimes-console"

var (
	version = "dev"
	commit  = "none"
)

func main() {
	info := cmd.BuildInfo{Name: appName, Version: version, Commit: commit}
	if err := cmd.Execute(context.Background(), info, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}
