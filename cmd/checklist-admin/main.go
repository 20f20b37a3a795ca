package main

import (
	"fmt"
	"os"

	"github.com/platinummonkey/checklist/pkg/cli"
	"github.com/platinummonkey/checklist/pkg/config"
	"github.com/platinummonkey/checklist/pkg/observability"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	root := cli.NewRootCommand(&cli.App{
		Config: cfg,
		Logger: observability.NewLogger(cfg.LogLevel(), os.Stderr),
		Out:    os.Stdout,
	})

	if err := root.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
