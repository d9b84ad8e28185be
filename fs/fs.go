// Package appfs embeds the files the binaries need at runtime: SQL migrations, email templates
// and static asset lists.
package appfs

import "embed"

//go:embed migrations/*.sql all:assets
var FS embed.FS
