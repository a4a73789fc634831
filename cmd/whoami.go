package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/takutakahashi/authclient/pkg/session"
)

var (
	whoamiOutput string
	whoamiRemote bool
)

var WhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Long: `Show the user encoded in the stored access token.

With --remote the user is fetched from GET /me instead, renewing the
credentials first if the server reports them expired.`,
	RunE: runWhoami,
}

func init() {
	WhoamiCmd.Flags().StringVarP(&whoamiOutput, "output", "o", "text", "Output format: text, json or yaml")
	WhoamiCmd.Flags().BoolVar(&whoamiRemote, "remote", false, "Ask the server instead of decoding the local token")
}

func runWhoami(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer env.Close()

	identity, err := env.session.Require()
	if err != nil {
		return err
	}

	if whoamiRemote {
		var me session.Identity
		if err := env.client.DoJSON(cmd.Context(), getRequest("/me"), &me); err != nil {
			return err
		}
		identity = &me
	}
	if identity == nil {
		return fmt.Errorf("access token carries no identity")
	}

	return render(cmd.OutOrStdout(), whoamiOutput, identity, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "User:  %s\nEmail: %s\nRole:  %s\n", identity.UserID, identity.Email, identity.Role)
		if err == nil && !identity.ExpiresAt.IsZero() {
			state := "valid"
			if identity.Expired(time.Now()) {
				state = "expired"
			}
			_, err = fmt.Fprintf(w, "Token: %s until %s\n", state, identity.ExpiresAt.Local().Format(time.RFC3339))
		}
		return err
	})
}
