package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "deckforge",
		Usage:                 "Generate PowerPoint slides from a brief with an LLM-driven feedback loop",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			generateCommand(),
			reportCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
