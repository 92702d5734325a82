//go:build !debug

// Package tag provides build tag constants.
package tag

const Debug = false
