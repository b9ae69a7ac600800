// Package config loads, validates, and defaults the TOML configuration shared
// by the SenseGrid daemon and CLI.
//
// Load resolves the config file (explicit path, then the user config dir, then
// a project-local sensegrid.toml), applies defaults for anything unset,
// expands ~ in paths, and validates values that would otherwise surface as
// confusing runtime failures. Derived paths (queue database, IPC socket, lock
// file) are exposed as methods so callers never assemble them by hand.
package config
