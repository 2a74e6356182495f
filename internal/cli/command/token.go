package command

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/qrtoken-go/internal/cli/output"
)

// tokenInfo mirrors the server's non-secret token view.
type tokenInfo struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Version   int        `json:"version"`
	State     string     `json:"state"`
	Label     string     `json:"label,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

type tokenPage struct {
	Tokens []tokenInfo `json:"tokens"`
	Count  int         `json:"count"`
}

func (l tokenPage) Table() *output.Table {
	t := output.NewTable("ID", "STATE", "LABEL", "CREATED", "EXPIRES", "REVOKED")
	for _, tok := range l.Tokens {
		created := tok.CreatedAt
		t.AddRow(tok.ID, tok.State, tok.Label,
			output.FormatTime(&created), output.FormatTime(tok.ExpiresAt), output.FormatTime(tok.RevokedAt))
	}
	return t
}

type issuedToken struct {
	ID        string     `json:"id"`
	QRText    string     `json:"qr_text"`
	Label     string     `json:"label,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (i issuedToken) Table() *output.Table {
	t := output.NewTable("FIELD", "VALUE")
	created := i.CreatedAt
	t.AddRow("id", i.ID)
	t.AddRow("label", i.Label)
	t.AddRow("created", output.FormatTime(&created))
	t.AddRow("expires", output.FormatTime(i.ExpiresAt))
	t.AddRow("qr_text", i.QRText)
	return t
}

type validation struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func (v validation) Table() *output.Table {
	t := output.NewTable("VALID", "ERROR")
	t.AddRow(yesNo(v.Valid), v.Error)
	return t
}

type resolution struct {
	UserID string `json:"user_id"`
}

func (r resolution) Table() *output.Table {
	t := output.NewTable("USER ID")
	t.AddRow(r.UserID)
	return t
}

type revocation struct {
	Revoked bool `json:"revoked"`
}

func (r revocation) Table() *output.Table {
	t := output.NewTable("REVOKED")
	t.AddRow(yesNo(r.Revoked))
	return t
}

type bulkRevocation struct {
	Revoked int `json:"revoked"`
}

func (r bulkRevocation) Table() *output.Table {
	t := output.NewTable("REVOKED")
	t.AddRow(fmt.Sprint(r.Revoked))
	return t
}

// TokenCommand returns the token subcommand group.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:    "token",
		Aliases: []string{"tok"},
		Usage:   "Manage QR tokens",
		Subcommands: []*cli.Command{
			{
				Name:      "issue",
				Usage:     "Issue a token for a user and print its QR text",
				ArgsUsage: "USER_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "label",
						Aliases: []string{"l"},
						Usage:   "Label shown to the owner (stored encrypted)",
					},
					&cli.DurationFlag{
						Name:    "ttl",
						Aliases: []string{"t"},
						Usage:   "Lifetime override (e.g., 24h); 0 uses the server default",
					},
				},
				Action: tokenIssue,
			},
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List a user's tokens",
				ArgsUsage: "USER_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "all",
						Aliases: []string{"a"},
						Usage:   "Include revoked and expired tokens",
					},
				},
				Action: tokenList,
			},
			{
				Name:      "validate",
				Usage:     "Check a scanned QR text",
				ArgsUsage: "QR_TEXT|-",
				Action:    tokenValidate,
			},
			{
				Name:      "resolve",
				Usage:     "Resolve a scanned QR text to its owner",
				ArgsUsage: "QR_TEXT|-",
				Action:    tokenResolve,
			},
			{
				Name:      "revoke",
				Usage:     "Revoke a token by its QR text, or by id with --user",
				ArgsUsage: "QR_TEXT|-|TOKEN_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "user",
						Aliases: []string{"u"},
						Usage:   "Owner of TOKEN_ID; switches to revoke by id",
					},
				},
				Action: tokenRevoke,
			},
			{
				Name:      "revoke-all",
				Usage:     "Revoke every active token of a user",
				ArgsUsage: "USER_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Skip confirmation",
					},
				},
				Action: tokenRevokeAll,
			},
		},
	}
}

func userPath(userID string) string {
	return "/v1/users/" + url.PathEscape(userID) + "/tokens"
}

func requireArg(c *cli.Context, name string) (string, error) {
	v := strings.TrimSpace(c.Args().First())
	if v == "" {
		return "", fmt.Errorf("%s required", name)
	}
	return v, nil
}

// qrArg returns the QR text argument, reading one line from stdin for "-".
func qrArg(c *cli.Context) (string, error) {
	v, err := requireArg(c, "QR text")
	if err != nil {
		return "", err
	}
	if v != "-" {
		return v, nil
	}
	line, err := bufio.NewReader(c.App.Reader).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read QR text: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("QR text required")
	}
	return line, nil
}

func tokenIssue(c *cli.Context) error {
	userID, err := requireArg(c, "user ID")
	if err != nil {
		return err
	}
	body := map[string]any{}
	if label := c.String("label"); label != "" {
		body["label"] = label
	}
	if ttl := c.Duration("ttl"); ttl > 0 {
		if ttl < time.Second {
			return fmt.Errorf("ttl must be at least 1s")
		}
		body["ttl_seconds"] = int64(ttl / time.Second)
	}

	client, err := newClient(c)
	if err != nil {
		return err
	}
	var result issuedToken
	if err := client.Post(c.Context, userPath(userID), body, &result); err != nil {
		return err
	}
	return render(c, result)
}

func tokenList(c *cli.Context) error {
	userID, err := requireArg(c, "user ID")
	if err != nil {
		return err
	}
	path := userPath(userID)
	if c.Bool("all") {
		path += "?include_inactive=true"
	}

	client, err := newClient(c)
	if err != nil {
		return err
	}
	var result tokenPage
	if err := client.Get(c.Context, path, &result); err != nil {
		return err
	}
	if err := render(c, result); err != nil {
		return err
	}
	if ParseGlobalFlags(c).Output == output.FormatTable {
		fmt.Fprintf(c.App.Writer, "\nTotal: %d tokens\n", result.Count)
	}
	return nil
}

func tokenValidate(c *cli.Context) error {
	text, err := qrArg(c)
	if err != nil {
		return err
	}
	client, err := newClient(c)
	if err != nil {
		return err
	}
	var result validation
	if err := client.Post(c.Context, "/v1/tokens/validate", map[string]string{"qr_text": text}, &result); err != nil {
		return err
	}
	return render(c, result)
}

func tokenResolve(c *cli.Context) error {
	text, err := qrArg(c)
	if err != nil {
		return err
	}
	client, err := newClient(c)
	if err != nil {
		return err
	}
	var result resolution
	if err := client.Post(c.Context, "/v1/tokens/resolve", map[string]string{"qr_text": text}, &result); err != nil {
		return err
	}
	return render(c, result)
}

func tokenRevoke(c *cli.Context) error {
	client, err := newClient(c)
	if err != nil {
		return err
	}
	var result revocation
	if userID := c.String("user"); userID != "" {
		id, err := requireArg(c, "token ID")
		if err != nil {
			return err
		}
		if err := client.Delete(c.Context, userPath(userID)+"/"+url.PathEscape(id), &result); err != nil {
			return err
		}
		return render(c, result)
	}

	text, err := qrArg(c)
	if err != nil {
		return err
	}
	if err := client.Post(c.Context, "/v1/tokens/revoke", map[string]string{"qr_text": text}, &result); err != nil {
		return err
	}
	return render(c, result)
}

func tokenRevokeAll(c *cli.Context) error {
	userID, err := requireArg(c, "user ID")
	if err != nil {
		return err
	}

	if !c.Bool("force") {
		fmt.Fprintf(c.App.Writer, "This will revoke all tokens for user '%s'. Type '%s' to confirm: ", userID, userID)
		confirm, _ := bufio.NewReader(c.App.Reader).ReadString('\n')
		if strings.TrimSpace(confirm) != userID {
			fmt.Fprintln(c.App.Writer, "Cancelled.")
			return nil
		}
	}

	client, err := newClient(c)
	if err != nil {
		return err
	}
	var result bulkRevocation
	if err := client.Post(c.Context, userPath(userID)+"/revoke", nil, &result); err != nil {
		return err
	}
	return render(c, result)
}
