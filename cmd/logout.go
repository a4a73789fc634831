package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutLocal bool

var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored credentials",
	Long:  "Revoke the refresh token on the server and delete the stored credentials for the selected profile",
	RunE:  runLogout,
}

func init() {
	LogoutCmd.Flags().BoolVar(&logoutLocal, "local", false, "Only delete local credentials, skip the server call")
}

func runLogout(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer env.Close()

	if logoutLocal {
		err = env.session.Logout(cmd.Context())
	} else {
		err = env.session.LogoutRemote(cmd.Context())
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logged out of profile %s\n", env.session.Profile())
	return nil
}
