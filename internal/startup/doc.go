// Package startup handles environment configuration, build metadata, and
// the structured startup/shutdown logging sequence.
package startup
