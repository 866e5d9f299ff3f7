package livepaper

import _ "embed"

//go:embed VERSION
var Version string

//go:embed livepaper.toml
var DefaultConfig string
