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
	"net/url"
	"strings"
)

// SecureOrigin reports whether the given origin is allowed to run a
// credential ceremony: HTTPS, or plain HTTP on a recognized loopback
// host. Anything unparsable is not secure.
func SecureOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}

	switch u.Scheme {
	case "https", "wss":
		return u.Host != ""
	case "http", "ws":
		return loopbackHost(u.Hostname())
	default:
		return false
	}
}

// loopbackHost reports whether host is a recognized loopback name or
// address. Subdomains of .localhost count, per the URL standard.
func loopbackHost(host string) bool {
	host = strings.ToLower(host)
	switch host {
	case "localhost", "127.0.0.1", "::1", "[::1]":
		return true
	}
	return strings.HasSuffix(host, ".localhost")
}
