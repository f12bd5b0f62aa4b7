// Package logging provides a simple leveled logging interface for the
// audio merger.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable
// (or DEBUG=true) and can be overridden at startup with SetLevel.
// Merge returns a scoped logger that tags each line with a merge ID.
package logging
