// Package config loads and caches cup game configurations from JSON
// files. A Manager serves named configs from a directory, validates them
// through the engine, and falls back to the built-in classic rules when
// the directory is empty or missing.
package config
