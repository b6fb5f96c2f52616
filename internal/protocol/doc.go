// Package protocol implements the line-oriented JSON command/status
// codec used on the stdio pipe between the orchestrator and every
// module child process.
//
// A command line is a JSON object carrying a "command" key plus
// arbitrary parameters and a timestamp; a status line is a JSON object
// with type:"status", a "status" name, a timestamp, and a "data"
// payload. Every line is terminated by '\n' and flushed immediately.
package protocol
