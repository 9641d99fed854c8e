package main

import (
	"context"
	"handins-grader/cmd/handins-grade/commands"
	"handins-grader/internal/components/osutil"
)

func main() {
	ctx, stop := osutil.SignalContext(context.Background())
	defer stop()
	commands.ExecuteContext(ctx)
}
