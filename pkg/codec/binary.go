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

package codec

import (
	"bytes"
	"encoding/json"
)

// Binary is a byte buffer that crosses JSON boundaries as a base64url
// string. All binary fields in the relying-party contract use this type
// so that encoding and decoding happen exclusively through the codec.
type Binary []byte

// MarshalJSON encodes the buffer as an unpadded base64url JSON string.
func (b Binary) MarshalJSON() ([]byte, error) {
	return json.Marshal(Encode(b))
}

// UnmarshalJSON decodes a base64url JSON string into the buffer.
// A JSON null leaves the buffer empty.
func (b *Binary) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*b = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	buf, err := Decode(s)
	if err != nil {
		return err
	}
	*b = buf
	return nil
}

// String returns the base64url form of the buffer.
func (b Binary) String() string {
	return Encode(b)
}
