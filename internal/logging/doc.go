// Package logging provides file-based structured logging with rotation.
// Logs are JSON lines written to ~/.indelve/logs/indelve.log and can be read
// back with `indelve logs`.
package logging
