// Package appidentityassets embeds the binary's identity so it runs outside a checkout.
package appidentityassets

import _ "embed"

// YAML mirrors .fulmen/app.yaml at the repository root. Keep the two identical.
//
//go:embed app.yaml
var YAML []byte
