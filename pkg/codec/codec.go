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

// Package codec converts between the wire representation of credential
// material (base64url strings) and the raw binary buffers the platform
// credential APIs operate on.
//
// Encoding always emits the unpadded, URL-safe form. Decoding tolerates
// both padded and unpadded input, and accepts the standard alphabet
// ('+', '/') alongside the URL-safe one ('-', '_') since relying parties
// in the wild are inconsistent about which they emit.
package codec

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeError is returned when input is not valid base64url.
type DecodeError struct {
	// Input is the string that failed to decode.
	Input string

	// Err is the underlying decoder error.
	Err error
}

// Error returns the error message.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec: malformed base64url input %q: %v", e.Input, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Encode converts a binary buffer to its unpadded base64url wire form.
func Encode(buf []byte) string {
	return base64.RawURLEncoding.EncodeToString(buf)
}

// Decode converts a base64url string back to a binary buffer.
//
// Padded and unpadded forms are both accepted: the input is normalized
// to the standard alphabet, padded to a multiple of four, and decoded
// with the standard decoder. Malformed input returns a *DecodeError.
func Decode(s string) ([]byte, error) {
	normalized := strings.NewReplacer("-", "+", "_", "/").Replace(s)
	if rem := len(normalized) % 4; rem != 0 {
		normalized += strings.Repeat("=", 4-rem)
	}
	buf, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		return nil, &DecodeError{Input: s, Err: err}
	}
	return buf, nil
}
