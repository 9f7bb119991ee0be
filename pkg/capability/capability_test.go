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

package capability

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlatform is a configurable Platform for tests.
type fakePlatform struct {
	uvpa        bool
	uvpaErr     error
	conditional bool
	condErr     error
}

func (f *fakePlatform) UserVerifyingPlatformAuthenticatorAvailable(context.Context) (bool, error) {
	return f.uvpa, f.uvpaErr
}

func (f *fakePlatform) ConditionalMediationAvailable(context.Context) (bool, error) {
	return f.conditional, f.condErr
}

func TestCeremonySupported(t *testing.T) {
	tests := []struct {
		name string
		env  Environment
		want bool
	}{
		{
			name: "all requirements met",
			env:  Environment{Interactive: true, Origin: "https://acme.records.example", Platform: &fakePlatform{}},
			want: true,
		},
		{
			name: "non-interactive context",
			env:  Environment{Interactive: false, Origin: "https://acme.records.example", Platform: &fakePlatform{}},
			want: false,
		},
		{
			name: "insecure origin",
			env:  Environment{Interactive: true, Origin: "http://acme.records.example", Platform: &fakePlatform{}},
			want: false,
		},
		{
			name: "platform API absent",
			env:  Environment{Interactive: true, Origin: "https://acme.records.example"},
			want: false,
		},
		{
			name: "loopback http allowed",
			env:  Environment{Interactive: true, Origin: "http://localhost:3000", Platform: &fakePlatform{}},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProber(tt.env, nil)
			assert.NotPanics(t, func() {
				assert.Equal(t, tt.want, p.CeremonySupported())
			})
		})
	}
}

func TestPlatformAuthenticatorAvailable(t *testing.T) {
	ctx := context.Background()
	env := func(pf Platform) Environment {
		return Environment{Interactive: true, Origin: "https://acme.records.example", Platform: pf}
	}

	t.Run("available", func(t *testing.T) {
		p := NewProber(env(&fakePlatform{uvpa: true}), nil)
		assert.True(t, p.PlatformAuthenticatorAvailable(ctx))
	})

	t.Run("unavailable", func(t *testing.T) {
		p := NewProber(env(&fakePlatform{uvpa: false}), nil)
		assert.False(t, p.PlatformAuthenticatorAvailable(ctx))
	})

	t.Run("probe error treated as unavailable", func(t *testing.T) {
		p := NewProber(env(&fakePlatform{uvpa: true, uvpaErr: errors.New("probe exploded")}), nil)
		assert.NotPanics(t, func() {
			assert.False(t, p.PlatformAuthenticatorAvailable(ctx))
		})
	})

	t.Run("false immediately when ceremony unsupported", func(t *testing.T) {
		p := NewProber(Environment{Interactive: false, Platform: &fakePlatform{uvpa: true}}, nil)
		assert.False(t, p.PlatformAuthenticatorAvailable(ctx))
	})
}

func TestAutofillAvailable(t *testing.T) {
	ctx := context.Background()
	env := Environment{Interactive: true, Origin: "https://acme.records.example"}

	t.Run("supported", func(t *testing.T) {
		e := env
		e.Platform = &fakePlatform{conditional: true}
		assert.True(t, NewProber(e, nil).AutofillAvailable(ctx))
	})

	t.Run("probe error yields false", func(t *testing.T) {
		e := env
		e.Platform = &fakePlatform{condErr: errors.New("not implemented")}
		assert.False(t, NewProber(e, nil).AutofillAvailable(ctx))
	})

	t.Run("absent platform yields false", func(t *testing.T) {
		assert.False(t, NewProber(env, nil).AutofillAvailable(ctx))
	})
}

func TestSecureOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"https://acme.records.example", true},
		{"https://acme.records.example:8443", true},
		{"http://localhost", true},
		{"http://localhost:5173", true},
		{"http://app.localhost", true},
		{"http://127.0.0.1:8080", true},
		{"http://[::1]:8080", true},
		{"http://acme.records.example", false},
		{"ftp://acme.records.example", false},
		{"", false},
		{"not a url at all \x7f", false},
		{"https://", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.origin), func(t *testing.T) {
			assert.Equal(t, tt.want, SecureOrigin(tt.origin))
		})
	}
}

// recordingDiag captures diagnostic lines so tests can assert the
// prober explains its negative answers.
type recordingDiag struct {
	lines []string
}

func (r *recordingDiag) Debugf(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func TestDiagnosticsPort(t *testing.T) {
	diag := &recordingDiag{}
	p := NewProber(Environment{Interactive: false}, diag)

	require.False(t, p.CeremonySupported())
	require.NotEmpty(t, diag.lines)
	assert.Contains(t, diag.lines[0], "non-interactive")
}
