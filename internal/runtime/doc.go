// Package runtime implements the module runtime: the command dispatcher and mode loops shared by every
// module process, plus the supervisor wrapper that
// drives a System's Run method with retry-on-InitializationError
// semantics.
package runtime
