// Package data embeds the starter catalog loaded by botctl seed.
package data

import (
	_ "embed"
)

//go:embed seed/bots.json
var SeedBots []byte
