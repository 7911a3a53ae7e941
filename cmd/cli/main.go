package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/angelospk/vgmdb-go/cmd/cli/cmd"
)

const version = "0.1.0"

func main() {
	if err := fang.Execute(
		context.Background(),
		cmd.RootCmd,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
