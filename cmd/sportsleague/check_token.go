package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahems/SportsLeague/pkg/auth"
)

// tokenReport is what check-token prints for an accepted token.
type tokenReport struct {
	Claims   map[string]any `json:"claims"`
	Name     string         `json:"name"`
	Subject  string         `json:"subject"`
	ObjectID string         `json:"object_id,omitempty"`
}

func newCheckTokenCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-token [token]",
		Short: "Validate a bearer token against the configured tenant",
		Long: `Validate a bearer token exactly as the API would and print the
caller it identifies. The token is read from the argument or, when
omitted, from the first line of standard input. A "Bearer " prefix is
accepted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			raw, err := tokenInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			v, err := auth.NewValidator(cfg.Auth, auth.WithLogger(logger))
			if err != nil {
				return err
			}
			p, err := v.ValidateToken(cmd.Context(), raw)
			if err != nil {
				return fmt.Errorf("token rejected (%s): %w", auth.ReasonOf(err), err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tokenReport{
				Claims:   p.ClaimMap(),
				Name:     p.Name(),
				Subject:  p.Subject(),
				ObjectID: p.ObjectID(),
			})
		},
	}
}

// tokenInput returns the compact token with any scheme stripped.
func tokenInput(args []string, stdin io.Reader) (string, error) {
	var raw string
	if len(args) == 1 {
		raw = args[0]
	} else {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("read token: %w", err)
		}
		raw = line
	}

	raw = strings.TrimSpace(raw)
	if scheme, rest, ok := strings.Cut(raw, " "); ok && strings.EqualFold(scheme, "bearer") {
		raw = strings.TrimSpace(rest)
	} else if strings.EqualFold(raw, "bearer") {
		raw = ""
	}
	if raw == "" {
		return "", fmt.Errorf("no token given")
	}
	return raw, nil
}
