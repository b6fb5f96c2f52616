// Package process implements the master-side module process handle:
// spawning a module child, consuming its status stream, serialising
// commands to its stdin, and tracking the
// IDLE/READY/SPAWNING/RUNNING/CRASHED state machine.
package process
