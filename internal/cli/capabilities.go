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

// capabilitiesCmd probes the environment for ceremony support
var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "Probe passkey ceremony capabilities",
	Long: `Probe whether the current environment can run passkey ceremonies:
whether ceremonies are supported at all, whether a platform
authenticator is available, and whether autofill-assisted sign-in is
available.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := getConfig()
		logger := cfg.newLogger()

		authn, err := cfg.newAuthenticator()
		if err != nil {
			handleError(err)
		}
		prober := cfg.newProber(authn, logger)

		ctx := cmd.Context()
		supported := prober.CeremonySupported()
		platform := prober.PlatformAuthenticatorAvailable(ctx)
		autofill := prober.AutofillAvailable(ctx)

		printer := NewPrinter(cfg.OutputFormat, os.Stdout)
		if err := printer.PrintCapabilities(supported, platform, autofill); err != nil {
			handleError(err)
		}
	},
}
