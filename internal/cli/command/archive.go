// Package command provides CLI command definitions for clubmesh.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/clubmesh-go/internal/cli/output"
	"github.com/yndnr/clubmesh-go/internal/core/service"
)

// ExportCommand returns the export command.
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the follow graph and token fingerprints",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Destination file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "passphrase-env",
				Usage:   "Name of an environment variable holding a sealing passphrase",
				EnvVars: []string{"CLUBMESH_PASSPHRASE_ENV"},
			},
		},
		Action: exportAction,
	}
}

// ImportCommand returns the import command.
func ImportCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a previously exported archive",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Archive file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "passphrase-env",
				Usage:   "Name of an environment variable holding the sealing passphrase",
				EnvVars: []string{"CLUBMESH_PASSPHRASE_ENV"},
			},
		},
		Action: importAction,
	}
}

func exportAction(c *cli.Context) error {
	return withManager(c, func(ctx context.Context, cfg *Config, m *service.Manager) error {
		path := c.String("file")

		spinner := output.NewSpinner(os.Stderr, "exporting")
		spinner.Start()

		var data []byte
		passphrase, sealErr := passphraseFromEnv(c)
		if sealErr != nil {
			spinner.Fail("export failed")
			return sealErr
		}
		if passphrase != "" {
			var err error
			data, err = m.ExportSealed(ctx, passphrase)
			if err != nil {
				spinner.Fail("export failed")
				return err
			}
		} else {
			archive, err := m.Export(ctx)
			if err != nil {
				spinner.Fail("export failed")
				return err
			}
			data, err = json.MarshalIndent(archive, "", "  ")
			if err != nil {
				spinner.Fail("export failed")
				return err
			}
		}

		if err := os.WriteFile(path, data, 0600); err != nil {
			spinner.Fail("export failed")
			return err
		}

		spinner.Success(fmt.Sprintf("exported to %s", path))
		return nil
	})
}

func importAction(c *cli.Context) error {
	return withManager(c, func(ctx context.Context, cfg *Config, m *service.Manager) error {
		data, err := os.ReadFile(c.String("file"))
		if err != nil {
			return err
		}

		spinner := output.NewSpinner(os.Stderr, "importing")
		spinner.Start()

		passphrase, sealErr := passphraseFromEnv(c)
		if sealErr != nil {
			spinner.Fail("import failed")
			return sealErr
		}
		if passphrase != "" {
			err = m.ImportSealed(ctx, data, passphrase)
		} else {
			var archive service.Archive
			if err = json.Unmarshal(data, &archive); err == nil {
				err = m.Import(ctx, &archive)
			}
		}
		if err != nil {
			spinner.Fail("import failed")
			return err
		}

		spinner.Success("import complete")
		return nil
	})
}

// passphraseFromEnv resolves the sealing passphrase, if any. The
// passphrase itself never appears on the command line.
func passphraseFromEnv(c *cli.Context) (string, error) {
	name := c.String("passphrase-env")
	if name == "" {
		return "", nil
	}
	passphrase := os.Getenv(name)
	if passphrase == "" {
		return "", fmt.Errorf("environment variable %s is empty", name)
	}
	return passphrase, nil
}
