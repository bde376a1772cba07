// Package command provides CLI command definitions for clubmesh.
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/clubmesh-go/internal/cli/output"
	"github.com/yndnr/clubmesh-go/internal/core/domain"
	"github.com/yndnr/clubmesh-go/internal/core/service"
)

// FollowCommand returns the follow command.
func FollowCommand() *cli.Command {
	return &cli.Command{
		Name:      "follow",
		Usage:     "Follow a user by redeeming one of their tokens",
		ArgsUsage: "FOLLOWER TOKEN",
		Action:    followAction,
	}
}

// UnfollowCommand returns the unfollow command.
func UnfollowCommand() *cli.Command {
	return &cli.Command{
		Name:      "unfollow",
		Usage:     "Stop following a user",
		ArgsUsage: "FOLLOWER FOLLOWING",
		Action:    unfollowAction,
	}
}

// FollowingCommand returns the following command.
func FollowingCommand() *cli.Command {
	return &cli.Command{
		Name:      "following",
		Usage:     "List the users a user follows",
		ArgsUsage: "USER",
		Action: func(c *cli.Context) error {
			return listEdges(c, true)
		},
	}
}

// FollowersCommand returns the followers command.
func FollowersCommand() *cli.Command {
	return &cli.Command{
		Name:      "followers",
		Usage:     "List the users following a user",
		ArgsUsage: "USER",
		Action: func(c *cli.Context) error {
			return listEdges(c, false)
		},
	}
}

func followAction(c *cli.Context) error {
	follower := c.Args().Get(0)
	tokenID := c.Args().Get(1)
	if follower == "" || tokenID == "" {
		return fmt.Errorf("follower and token required")
	}

	return withManager(c, func(ctx context.Context, cfg *Config, m *service.Manager) error {
		ok, err := m.FollowViaToken(ctx, follower, tokenID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("follow rejected")
		}
		fmt.Fprintf(c.App.Writer, "%s now follows via %s\n", follower, domain.MaskToken(tokenID))
		return nil
	})
}

func unfollowAction(c *cli.Context) error {
	follower := c.Args().Get(0)
	following := c.Args().Get(1)
	if follower == "" || following == "" {
		return fmt.Errorf("follower and following required")
	}

	return withManager(c, func(ctx context.Context, cfg *Config, m *service.Manager) error {
		ok, err := m.Unfollow(ctx, follower, following)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(c.App.Writer, "%s does not follow %s\n", follower, following)
			return nil
		}
		fmt.Fprintf(c.App.Writer, "%s unfollowed %s\n", follower, following)
		return nil
	})
}

// edgeRow is the list rendering of a follow edge.
type edgeRow struct {
	User  string `json:"user"`
	Via   string `json:"via_token"`
	Since string `json:"since"`
}

func listEdges(c *cli.Context, outgoing bool) error {
	user := c.Args().First()
	if user == "" {
		return fmt.Errorf("user required")
	}

	return withManager(c, func(ctx context.Context, cfg *Config, m *service.Manager) error {
		var (
			edges []*domain.Relationship
			err   error
		)
		if outgoing {
			edges, err = m.ListFollowing(user)
		} else {
			edges, err = m.ListFollowers(user)
		}
		if err != nil {
			return err
		}

		rows := make([]edgeRow, 0, len(edges))
		for _, edge := range edges {
			other := edge.FollowingID
			if !outgoing {
				other = edge.FollowerID
			}
			rows = append(rows, edgeRow{
				User:  other,
				Via:   domain.MaskToken(edge.ViaToken),
				Since: edge.CreatedAt.Format(time.RFC3339),
			})
		}

		flags := ParseGlobalFlags(c)
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		if err := formatter.Format(c.App.Writer, rows); err != nil {
			return err
		}
		if output.Format(flags.Output) == output.FormatTable {
			fmt.Fprintf(c.App.Writer, "\nTotal: %d\n", len(rows))
		}
		return nil
	})
}
