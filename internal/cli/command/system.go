// Package command provides CLI command definitions for clubmesh.
package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/clubmesh-go/internal/cli/output"
	"github.com/yndnr/clubmesh-go/internal/core/service"
)

// ClubhouseCommand returns the clubhouse subcommand group.
func ClubhouseCommand() *cli.Command {
	return &cli.Command{
		Name:    "clubhouse",
		Aliases: []string{"ch"},
		Usage:   "Inspect clubhouses",
		Subcommands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "Describe a clubhouse via its most recent active token",
				ArgsUsage: "CLUBHOUSE",
				Action:    clubhouseInfo,
			},
		},
	}
}

// StatsCommand returns the stats command.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show aggregate token and follow graph statistics",
		Action: statsAction,
	}
}

func clubhouseInfo(c *cli.Context) error {
	clubhouse := c.Args().First()
	if clubhouse == "" {
		return fmt.Errorf("clubhouse required")
	}

	return withManager(c, func(ctx context.Context, cfg *Config, m *service.Manager) error {
		info, err := m.ResourceInfo(ctx, clubhouse)
		if err != nil {
			return err
		}
		if info == nil {
			return fmt.Errorf("no active tokens for clubhouse %s", clubhouse)
		}

		flags := ParseGlobalFlags(c)
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(c.App.Writer, info)
	})
}

func statsAction(c *cli.Context) error {
	return withManager(c, func(ctx context.Context, cfg *Config, m *service.Manager) error {
		stats, err := m.Stats(ctx)
		if err != nil {
			return err
		}

		flags := ParseGlobalFlags(c)
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(c.App.Writer, stats)
	})
}
