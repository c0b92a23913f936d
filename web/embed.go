// Package web embeds the page assets so the binary ships self-contained.
package web

import (
	"embed"
	"io/fs"
	"log"
)

//go:embed static templates
var content embed.FS

// StaticFS exposes the stylesheet and other files served under /static/.
func StaticFS() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		log.Fatalf("invalid static embed: %v", err)
	}
	return sub
}

// TemplatesFS exposes the HTML templates for the page loader.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(content, "templates")
	if err != nil {
		log.Fatalf("invalid templates embed: %v", err)
	}
	return sub
}
