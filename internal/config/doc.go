// Package config loads the orchestrator's and each module's simple
// key=value configuration files through a koanf pipeline:
// a custom Parser (kv.go) handles the key=value wire grammar, while
// koanf itself supplies layered sources, precedence, and fsnotify-driven
// hot reload.
package config
