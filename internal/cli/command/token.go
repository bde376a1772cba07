// Package command provides CLI command definitions for clubmesh.
package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/clubmesh-go/internal/cli/output"
	"github.com/yndnr/clubmesh-go/internal/core/domain"
	"github.com/yndnr/clubmesh-go/internal/core/service"
	"github.com/yndnr/clubmesh-go/internal/infra/confloader"
	"github.com/yndnr/clubmesh-go/internal/infra/shutdown"
	"github.com/yndnr/clubmesh-go/internal/telemetry/logger"
	"github.com/yndnr/clubmesh-go/internal/telemetry/metric"
)

// TokenCommand returns the token subcommand group.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:    "token",
		Aliases: []string{"tok"},
		Usage:   "Manage clubhouse tokens",
		Subcommands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Generate a new token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "User the token is issued to",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "clubhouse",
						Aliases:  []string{"C"},
						Usage:    "Clubhouse the token grants access to",
						Required: true,
					},
					&cli.DurationFlag{
						Name:    "ttl",
						Aliases: []string{"t"},
						Usage:   "Token TTL (e.g., 24h, 30m); defaults to the configured TTL",
					},
					&cli.StringSliceFlag{
						Name:    "meta",
						Aliases: []string{"m"},
						Usage:   "Metadata as KEY=VALUE pairs",
					},
				},
				Action: tokenGenerate,
			},
			{
				Name:      "validate",
				Usage:     "Validate a token and touch its last-used time",
				ArgsUsage: "TOKEN",
				Action:    tokenValidate,
			},
			{
				Name:      "revoke",
				Usage:     "Revoke a token",
				ArgsUsage: "TOKEN",
				Action:    tokenRevoke,
			},
			{
				Name:      "revoke-all",
				Usage:     "Revoke all tokens issued to a user",
				ArgsUsage: "USER",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Skip confirmation",
					},
				},
				Action: tokenRevokeAll,
			},
			{
				Name:  "sweep",
				Usage: "Remove expired tokens",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:    "every",
						Aliases: []string{"e"},
						Usage:   "Run continuously with the given interval",
					},
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "Serve Prometheus metrics on this address while sweeping (e.g., :9090)",
					},
				},
				Action: tokenSweep,
			},
		},
	}
}

func tokenGenerate(c *cli.Context) error {
	return withManager(c, func(ctx context.Context, cfg *Config, m *service.Manager) error {
		ttl := c.Duration("ttl")
		if ttl == 0 {
			ttl = cfg.Token.DefaultTTL
		}

		metadata, err := parseMetadata(c.StringSlice("meta"))
		if err != nil {
			return err
		}

		resp, err := m.GenerateToken(ctx, &service.GenerateTokenRequest{
			PrincipalID: c.String("user"),
			ResourceID:  c.String("clubhouse"),
			TTL:         ttl,
			Metadata:    metadata,
		})
		if err != nil {
			return err
		}

		flags := ParseGlobalFlags(c)
		if output.Format(flags.Output) == output.FormatTable {
			// The secret is printed exactly once, here.
			fmt.Fprintf(c.App.Writer, "%s\n", resp.Token.ID)
			fmt.Fprintf(c.App.Writer, "expires: %s\n", resp.Token.ExpiresAt.Format(time.RFC3339))
			return nil
		}
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(c.App.Writer, resp.Token)
	})
}

func tokenValidate(c *cli.Context) error {
	tokenID := c.Args().First()
	if tokenID == "" {
		return fmt.Errorf("token required")
	}

	return withManager(c, func(ctx context.Context, cfg *Config, m *service.Manager) error {
		resp, err := m.ValidateToken(ctx, &service.ValidateTokenRequest{Token: tokenID})
		if err != nil {
			return err
		}

		flags := ParseGlobalFlags(c)
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(c.App.Writer, map[string]any{
			"valid":        resp.Valid,
			"user_id":      resp.Token.PrincipalID,
			"clubhouse_id": resp.Token.ResourceID,
			"expires_at":   resp.Token.ExpiresAt.Format(time.RFC3339),
			"last_used":    resp.Token.LastUsedAt.Format(time.RFC3339),
		})
	})
}

func tokenRevoke(c *cli.Context) error {
	tokenID := c.Args().First()
	if tokenID == "" {
		return fmt.Errorf("token required")
	}

	return withManager(c, func(ctx context.Context, cfg *Config, m *service.Manager) error {
		if err := m.RevokeToken(ctx, tokenID); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "revoked %s\n", domain.MaskToken(tokenID))
		return nil
	})
}

func tokenRevokeAll(c *cli.Context) error {
	user := c.Args().First()
	if user == "" {
		return fmt.Errorf("user required")
	}
	if !c.Bool("force") {
		if !confirm(c, fmt.Sprintf("Revoke ALL tokens for %s?", user)) {
			fmt.Fprintln(c.App.Writer, "aborted")
			return nil
		}
	}

	return withManager(c, func(ctx context.Context, cfg *Config, m *service.Manager) error {
		count, err := m.RevokeAllForPrincipal(ctx, user)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "revoked %d tokens for %s\n", count, user)
		return nil
	})
}

func tokenSweep(c *cli.Context) error {
	var opts []service.Option
	metricsAddr := c.String("metrics-addr")
	if metricsAddr != "" {
		opts = append(opts, service.WithMetrics(metric.Global()))
	}

	return withManager(c, func(ctx context.Context, cfg *Config, m *service.Manager) error {
		interval := c.Duration("every")

		sweep := func() error {
			count, err := m.SweepExpired(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "swept %d expired tokens\n", count)
			return nil
		}

		if interval <= 0 {
			return sweep()
		}

		// Daemon mode: sweep on a ticker until SIGINT/SIGTERM.
		if err := sweep(); err != nil {
			return err
		}

		if metricsAddr != "" {
			srv := &http.Server{Addr: metricsAddr, Handler: metric.Global().HandlerFor()}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					PrintError("metrics server: %v", err)
				}
			}()
			defer srv.Close()
			logger.Default().Info("serving metrics", "addr", metricsAddr)
		}

		// Re-read the config on file change so a log-level edit takes
		// effect without restarting the daemon.
		if flags := ParseGlobalFlags(c); flags.Config != "" {
			watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(logger.Default()))
			if err != nil {
				return err
			}
			watcher.OnChange(func(path string) {
				if _, err := loadConfig(c); err != nil {
					PrintError("reload config %s: %v", path, err)
					return
				}
				logger.Default().Info("config reloaded", "path", path)
			})
			if err := watcher.Watch(flags.Config); err != nil {
				return err
			}
			watcher.StartAsync()
			defer watcher.Stop()
		}

		ticker := m.Clock().NewTicker(interval)
		defer ticker.Stop()

		handler := shutdown.NewHandler(5 * time.Second)
		stopped := make(chan struct{})
		handler.OnShutdown(func(context.Context) error {
			close(stopped)
			return nil
		})
		go handler.Wait()

		for {
			select {
			case <-stopped:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := sweep(); err != nil {
					PrintError("sweep failed: %v", err)
				}
			}
		}
	}, opts...)
}

// parseMetadata converts KEY=VALUE pairs into a metadata map.
func parseMetadata(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	metadata := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid metadata %q, want KEY=VALUE", pair)
		}
		metadata[key] = value
	}
	return metadata, nil
}

// confirm prompts for a yes/no answer on stdin.
func confirm(c *cli.Context, prompt string) bool {
	fmt.Fprintf(c.App.Writer, "%s [y/N]: ", prompt)
	var answer string
	fmt.Fscanln(c.App.Reader, &answer)
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
