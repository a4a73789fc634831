package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the credentials",
	Long: `Sign in with email and password and store the returned credential pair
for the selected profile.

The password is read from --password, the AUTHCLIENT_PASSWORD environment
variable, or standard input, in that order.`,
	RunE: runLogin,
}

func init() {
	LoginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email")
	LoginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password")
	_ = LoginCmd.MarkFlagRequired("email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	password := loginPassword
	if password == "" {
		password = os.Getenv("AUTHCLIENT_PASSWORD")
	}
	if password == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	env, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer env.Close()

	identity, err := env.session.Login(cmd.Context(), loginEmail, password)
	if err != nil {
		return err
	}

	if identity != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", identity.Email, identity.Role)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", loginEmail)
	}
	return nil
}
