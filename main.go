package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/takutakahashi/authclient/cmd"
)

var rootCmd = &cobra.Command{
	Use:   "authclient",
	Short: "Authenticated API client",
	Long: `Command line client for a bearer-token API.

Credentials are stored per profile and renewed automatically: when the server
rejects an expired access token, concurrent requests share a single renewal
and are replayed with the new token.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file path (yaml, json or toml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().String("env-file", "", "Load KEY=VALUE pairs into the environment before reading configuration")
	rootCmd.PersistentFlags().String("profile", "", "Credential profile")
	rootCmd.PersistentFlags().String("base-url", "", "API base URL")

	// Bind flags to viper
	for key, flag := range map[string]string{
		"config":   "config",
		"verbose":  "verbose",
		"env_file": "env-file",
		"profile":  "profile",
		"base_url": "base-url",
	} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			log.Printf("Failed to bind %s flag: %v", flag, err)
		}
	}

	rootCmd.AddCommand(cmd.LoginCmd)
	rootCmd.AddCommand(cmd.LogoutCmd)
	rootCmd.AddCommand(cmd.WhoamiCmd)
	rootCmd.AddCommand(cmd.RequestCmd)
	rootCmd.AddCommand(cmd.BurstCmd)
	rootCmd.AddCommand(cmd.MockServerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
