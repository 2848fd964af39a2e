// Package web holds the console's templates and static assets.
package web

import "embed"

//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS is served fingerprinted under /static/.
//
//go:embed static/*
var StaticFS embed.FS
