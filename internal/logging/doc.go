// Package logging provides a simple leveled logging interface for the
// compositor pipeline.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (per-tick diagnostics)
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable.
// Failures inside a compositor tick are logged and swallowed; they must
// never stop the frame pump.
package logging
