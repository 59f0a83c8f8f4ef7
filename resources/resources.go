// Package resources embeds files shipped inside the binary.
package resources

import _ "embed"

// DefaultConfig is the commented configuration written by "config init".
//
//go:embed textmacro.yaml
var DefaultConfig []byte
