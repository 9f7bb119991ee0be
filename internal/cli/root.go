// Copyright (c) 2025 DecisionWorks, Inc.
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@decisionworks.io for commercial licensing options.

package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global configuration
	globalConfig *Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "passkeyctl",
	Short: "passkeyctl - passwordless authentication ceremony tool",
	Long: `passkeyctl drives passkey registration and sign-in ceremonies
against a relying-party server, using a software platform
authenticator.

It speaks the same HTTP contract a browser front end would:
capability probes, WebAuthn registration/authentication ceremonies,
tenant method selection, credential recovery and access requests.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return globalConfig.loadFile()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	globalConfig = NewConfig()

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&globalConfig.ConfigFile, "config", "",
		"config file (default is $HOME/.passkeyctl.yaml)")
	rootCmd.PersistentFlags().StringVar(&globalConfig.Server, "server", "",
		"relying party server base URL")
	rootCmd.PersistentFlags().StringVar(&globalConfig.TenantDomain, "tenant", "",
		"tenant domain, e.g. acme.example")
	rootCmd.PersistentFlags().StringVar(&globalConfig.Origin, "origin", "",
		"client origin (default https://<tenant>)")
	rootCmd.PersistentFlags().StringVarP(&globalConfig.OutputFormat, "output", "o", "text",
		"output format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&globalConfig.Verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().BoolVar(&globalConfig.TLSInsecure, "tls-insecure", false,
		"skip TLS certificate verification")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(capabilitiesCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(signinCmd)
	rootCmd.AddCommand(credentialsCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(resendCmd)
	rootCmd.AddCommand(requestAccessCmd)
}

// getConfig returns the global configuration
func getConfig() *Config {
	return globalConfig
}

// handleError prints an error and exits with code 1
func handleError(err error) {
	printer := NewPrinter(globalConfig.OutputFormat, os.Stderr)
	_ = printer.PrintError(err)
	os.Exit(1)
}
