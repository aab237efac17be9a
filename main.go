package main

import (
	"context"
	"log"
	"os"

	"pkt.systems/psi"
	"pkt.systems/pslog"

	"github.com/sadopc/tminus/internal/cli"
	"github.com/sadopc/tminus/internal/logx"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := logx.Console()
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := cli.NewRootCmd()
	root.SetArgs(os.Args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("tminus command failed")
		return 1
	}
	return 0
}
