// Package config loads, normalizes, and validates skillset client
// configuration.
//
// It supplies defaults (5s dial timeout, 16 MiB frame limit, logging off),
// expands tilde paths, and decodes TOML files strictly so misspelled keys fail
// loudly. The file location is always provided by the caller; nothing is read
// from the environment.
package config
