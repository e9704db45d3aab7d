package web

import (
	"embed"
)

// staticFiles holds the booth page and its stylesheet.
//
//go:embed static/*
var staticFiles embed.FS
