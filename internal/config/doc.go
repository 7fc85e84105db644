// Package config manages user-level settings stored at ~/.promptitude/config.yaml:
// the ordered repository list, per-category enable flags, the prompts and
// storage directories, and provider options. The file is validated against
// an embedded JSON schema.
package config
