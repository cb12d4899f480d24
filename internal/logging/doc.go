// Package logging provides structured logging for the remote processor
// framework.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the framework. It provides both general logging
// functions and specialized functions for boot-time logging needs.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (section walks, resource entries, hex dumps)
//   - Info: Normal operations (power up/down, state changes, firmware loads)
//   - Warn: Non-fatal issues (unresolved resource requests, unknown entries)
//   - Error: Fatal issues (boot failures, asymmetric releases)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Powering up",
//	    zap.String("rproc", "omap-dsp"),
//	    zap.String("firmware", "dsp-image.bin"),
//	)
//
// # Configuration
//
// Logging is silent by default so the library never surprises an embedder
// with output. Enable it either explicitly:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// or through the RPROC_LOG_LEVEL environment variable:
//
//	RPROC_LOG_LEVEL=debug ./myplatformd
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
