// Package suspend decides which calls of a function may suspend it.
//
// Suspendability is a property of the callee, configured by name patterns:
//   - "sleep" - a call to sleep, or to any method named sleep
//   - "io.read" - exactly io.read
//   - "io.*" - every method of io
//   - "*" - every call
//
// Await expressions suspend unless disabled. The marker only sets the
// Suspend flag of parser nodes; lowering reads it afterwards.
package suspend
