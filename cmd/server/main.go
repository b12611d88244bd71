// Command apeguard serves the permissioned registries over HTTP.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:          "apeguard",
	Short:        "Permissioned registries and relations",
	Long:         `apeguard hosts indexed registries of addresses, names and domains, and the relations linking them, behind owner and allow-list access policies.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (environment variables prefixed APEGUARD_ override it)")
	rootCmd.AddCommand(serveCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
