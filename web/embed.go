// Package web embeds the default offline manifest of the application shell.
package web

import _ "embed"

// Manifest lists the shell assets precached by each cache generation, one
// path per line relative to the asset origin.
//
//go:embed manifest.txt
var Manifest string
