// Package logging provides a simple leveled logging interface for the
// gallery tools.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable
// (DEBUG=true forces debug). Setting LOG_FILE sends log output to a size
// rotated file instead of stderr; LOG_MAX_SIZE_MB sets the rotation size.
//
// Log lines are diagnostics only. The report printed by the commands is
// written separately to the command's output stream.
package logging
