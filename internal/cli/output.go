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
	"encoding/json"
	"fmt"
	"io"

	"github.com/decisionworks/go-passkey/pkg/ceremony"
	"github.com/decisionworks/go-passkey/pkg/flow"
	"github.com/decisionworks/go-passkey/pkg/rp"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

func (p *Printer) printJSON(v interface{}) error {
	enc := json.NewEncoder(p.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintCapabilities prints the capability probe results
func (p *Printer) PrintCapabilities(supported, platform, autofill bool) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]bool{
			"ceremony_supported":      supported,
			"platform_authenticator":  platform,
			"autofill_ui":             autofill,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, "Capabilities:")
		fmt.Fprintf(p.writer, "  Ceremony supported:     %t\n", supported)
		fmt.Fprintf(p.writer, "  Platform authenticator: %t\n", platform)
		fmt.Fprintf(p.writer, "  Autofill UI:            %t\n", autofill)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintOutcome prints the result of a verified ceremony
func (p *Printer) PrintOutcome(outcome *ceremony.VerifyOutcome) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(outcome)
	case OutputFormatText:
		fmt.Fprintln(p.writer, outcome.Message)
		if outcome.User.Email != "" {
			fmt.Fprintf(p.writer, "Signed in as %s\n", outcome.User.Email)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintState prints a flow machine snapshot
func (p *Printer) PrintState(state flow.State) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"view":          state.View,
			"method":        state.Method,
			"email":         state.Email,
			"message":       state.Message,
			"authenticated": state.Authenticated,
		})
	case OutputFormatText:
		fmt.Fprintf(p.writer, "View: %s\n", state.View)
		if state.Method != "" {
			fmt.Fprintf(p.writer, "Method: %s\n", state.Method)
		}
		if state.Message != "" {
			fmt.Fprintln(p.writer, state.Message)
		}
		if state.Authenticated {
			fmt.Fprintf(p.writer, "Signed in as %s\n", state.Email)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintCredentials prints the enrolled credential list
func (p *Printer) PrintCredentials(creds []rp.EnrolledCredentialSummary) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(creds)
	case OutputFormatText:
		if len(creds) == 0 {
			fmt.Fprintln(p.writer, "No passkeys enrolled.")
			return nil
		}
		fmt.Fprintln(p.writer, "Enrolled passkeys:")
		for _, cred := range creds {
			label := cred.Label
			if label == "" {
				label = "(unnamed)"
			}
			fmt.Fprintf(p.writer, "  %s  %s  created %s\n",
				cred.ID, label, cred.CreatedAt.Format("2006-01-02"))
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintMessage prints a plain server message
func (p *Printer) PrintMessage(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]string{"message": message})
	case OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]string{"error": err.Error()})
	default:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	}
}
