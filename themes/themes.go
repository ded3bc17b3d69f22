// Package themes embeds the print layout stylesheets.
package themes

import "embed"

// FS holds every layout stylesheet at its root.
//
//go:embed *.css
var FS embed.FS
