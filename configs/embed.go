// Package configs embeds the commented configuration template written by
// `indelve config init`.
//
// The template documents every setting with its default. Keep it in sync
// with internal/config NewConfig(); configs_test.go checks that it loads
// to the same values.
package configs

import _ "embed"

// UserConfigTemplate is written to ~/.config/indelve/config.yaml.
//
//go:embed config.example.yaml
var UserConfigTemplate string
