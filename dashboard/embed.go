// Package dashboard provides the embedded control panel page.
//
// The page is compiled into the binary with Go's embed directive, so the
// panel ships as a single file. It is served by the server package at "/".
package dashboard

import "embed"

// Assets is an embedded filesystem containing the panel page.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - panel page with buttons, message area and inline script
//
//go:embed assets/*
var Assets embed.FS
