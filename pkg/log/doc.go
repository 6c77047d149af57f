/*
Package log provides structured logging for harnessd and harness using zerolog.

The global Logger is configured once via Init, which picks JSON or
console output and a minimum Level. Callers derive scoped child loggers
with WithComponent (a subsystem name, e.g. "scheduler"), WithService and
WithTask (the entry's name, for logs tied to a single running unit), and
WithRun (a scheduler run ID, so every log line from one StartStack/
StopStack pass can be correlated). Info/Debug/Warn/Error/Fatal are thin
wrappers around Logger for call sites that don't need extra fields.

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	svcLog := log.WithService("web")
	svcLog.Info().Msg("service started")
*/
package log
