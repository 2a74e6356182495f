package command

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/qrtoken-go/internal/cli/output"
)

var errNotReady = errors.New("server is not ready")

type serverStatus struct {
	Server  string `json:"server"`
	Healthy bool   `json:"healthy"`
	Ready   bool   `json:"ready"`
	Error   string `json:"error,omitempty"`
}

func (s serverStatus) Table() *output.Table {
	t := output.NewTable("SERVER", "HEALTHY", "READY", "ERROR")
	t.AddRow(s.Server, yesNo(s.Healthy), yesNo(s.Ready), s.Error)
	return t
}

// StatusCommand probes /health and /ready.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Check server health and readiness",
		Action: func(c *cli.Context) error {
			client, err := newClient(c)
			if err != nil {
				return err
			}
			st := serverStatus{Server: client.BaseURL()}

			if err := client.Get(c.Context, "/health", nil); err != nil {
				st.Error = err.Error()
			} else {
				st.Healthy = true
				if err := client.Get(c.Context, "/ready", nil); err != nil {
					st.Error = err.Error()
				} else {
					st.Ready = true
				}
			}

			if err := render(c, st); err != nil {
				return err
			}
			if !st.Ready {
				return errNotReady
			}
			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

