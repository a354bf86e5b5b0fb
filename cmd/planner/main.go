package main

import "planner/internal/cli"

func main() {
	ctx, stop := cli.SignalContext()
	defer stop()
	execute(ctx)
}
