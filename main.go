package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/lehigh-university-libraries/captioner/cmd"
)

// version is overridden at release time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// fang supplies --version, completions, and cancels the command
	// context on interrupt so serve can shut down cleanly
	err := fang.Execute(context.Background(), cmd.NewRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	)
	if err != nil {
		os.Exit(1)
	}
}
