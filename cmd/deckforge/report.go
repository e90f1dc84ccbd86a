package main

import (
	"context"
	"fmt"
	"path/filepath"

	cli "github.com/urfave/cli/v3"

	"github.com/deckforge/deckforge/pkg/artifacts"
	"github.com/deckforge/deckforge/pkg/models"
)

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:    "report",
		Aliases: []string{"r"},
		Usage:   "Print the iteration history of a finished run",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "run-dir",
				Aliases:  []string{"d"},
				Usage:    "Path to a run directory containing metadata.json",
				Required: true,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return runReport(command.String("run-dir"))
		},
	}
}

func runReport(runDir string) error {
	metadata, err := artifacts.ReadMetadata(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return err
	}

	fmt.Printf("Run %s (%s)\n", metadata.RunID, metadata.Status)
	fmt.Printf("Brief: %s\n", firstLine(metadata.Request.Prompt))

	if len(metadata.Request.Images) > 0 {
		fmt.Printf("Images: %d\n", len(metadata.Request.Images))
	}

	fmt.Printf("\nScript versions (%d):\n", len(metadata.ScriptVersions))

	for _, version := range metadata.ScriptVersions {
		fmt.Printf("  %-22s origin=%-11s status=%-7s", version.VersionID, version.Origin, version.Status)

		if version.ParentVersionID != "" {
			fmt.Printf(" parent=%s", version.ParentVersionID)
		}

		fmt.Println()
	}

	fmt.Printf("\nIterations (%d):\n", len(metadata.Iterations))

	for i, record := range metadata.Iterations {
		fmt.Printf("  %d. stage=%-16s version=%-22s rc=%d %.2fs",
			i+1, record.Stage, record.ScriptVersionID, record.Execution.ReturnCode, record.Execution.DurationSeconds)

		if record.Score != nil {
			fmt.Printf(" aggregate=%.2f", record.Score.Aggregate)
		}

		fmt.Println()
	}

	if metadata.BestScore != nil {
		fmt.Printf("\nBest: %s aggregate=%.2f\n", metadata.BestVersionID, metadata.BestScore.Aggregate)
		printScore(metadata.BestScore)
	}

	return nil
}

func printScore(score *models.ScoreBreakdown) {
	fmt.Printf("  completeness=%.1f content_accuracy=%.1f layout_match=%.1f visual_quality=%.1f\n",
		score.Completeness, score.ContentAccuracy, score.LayoutMatch, score.VisualQuality)

	for _, issue := range score.Issues {
		fmt.Printf("  - %s\n", issue)
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}

	return s
}
