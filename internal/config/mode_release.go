//go:build !debug

package config

const buildDebug = false
