// Package configs embeds the commented configuration templates written by
// `docsearch config init`.
//
// Values in the templates match internal/config NewConfig(); the config
// package tests load each template and compare it against the defaults.
package configs

import _ "embed"

// ProjectConfigTemplate is written to .docsearch.yaml in the config directory.
// It covers search and ranking, the settings most worth tuning per corpus.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string

// UserConfigTemplate is written to the user config file. It covers settings
// that belong to the machine: the embedding endpoint, storage and logging.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string
