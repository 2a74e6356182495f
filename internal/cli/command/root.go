package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/qrtoken-go/internal/cli/connection"
	"github.com/yndnr/qrtoken-go/internal/cli/output"
	"github.com/yndnr/qrtoken-go/internal/infra/buildinfo"
	"github.com/yndnr/qrtoken-go/internal/infra/tlsroots"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "qrtoken-cli",
		Usage:   "Issue, inspect and revoke QR calling tokens",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			TokenCommand(),
			StatusCommand(),
			VersionCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "qrtoken-server address (e.g., localhost:5080)",
			EnvVars: []string{"QRTOKEN_SERVER"},
			Value:   "localhost:5080",
		},
		&cli.StringFlag{
			Name:    "auth-token",
			Usage:   "Bearer token for the API gateway",
			EnvVars: []string{"QRTOKEN_AUTH_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.StringFlag{
			Name:    "ca-file",
			Usage:   "PEM file of extra CAs trusted for https servers",
			EnvVars: []string{"QRTOKEN_CA_FILE"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout",
			Value: connection.DefaultTimeout,
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Server    string
	AuthToken string
	CAFile    string
	Output    output.Format
	Timeout   time.Duration
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	format, _ := output.ParseFormat(c.String("output"))
	return &GlobalFlags{
		Server:    c.String("server"),
		AuthToken: c.String("auth-token"),
		CAFile:    c.String("ca-file"),
		Output:    format,
		Timeout:   c.Duration("timeout"),
	}
}

// newClient builds the HTTP client from the global flags.
func newClient(c *cli.Context) (*connection.HTTPClient, error) {
	flags := ParseGlobalFlags(c)
	client := connection.NewHTTPClient(flags.Server, flags.AuthToken, flags.Timeout)
	if flags.CAFile != "" {
		pool := tlsroots.NewPool()
		if err := pool.AddCertFile(flags.CAFile); err != nil {
			return nil, err
		}
		client.SetTLSConfig(pool.ClientConfig())
	}
	return client, nil
}

// render prints data with the selected formatter.
func render(c *cli.Context, data any) error {
	return output.NewFormatter(ParseGlobalFlags(c).Output).Format(c.App.Writer, data)
}

// VersionCommand prints build information.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			flags := ParseGlobalFlags(c)
			if flags.Output == output.FormatTable {
				fmt.Fprintf(c.App.Writer, "qrtoken-cli %s\n", buildinfo.String())
				return nil
			}
			return render(c, buildinfo.Get())
		},
	}
}
