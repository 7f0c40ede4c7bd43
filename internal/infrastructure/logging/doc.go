// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON lines on stderr
//   - Development: colored console output on stderr
//
// Stdout is never used; it belongs to the tokenizer output.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	log := logger.WithRun(runID).Task("producer", 2, taskID)
//	log.Debug("pushed", zap.Int("queue", 1))
package logging
