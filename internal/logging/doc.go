// Package logging provides structured, per-component logging for the
// orchestrator and every module runtime it supervises.
//
// Logging is built on logrus with an optional rotating file sink
// (lumberjack). Loggers carry a component name and an optional
// correlation ID so a single trial's log lines can be traced across the
// orchestrator and its module children even though they run in
// separate processes and write to separate log files.
package logging
