// Package server implements the unibuild daemon.
//
// The daemon listens on a Unix domain socket for newline-delimited JSON
// commands from the CLI. Workflow submissions are scheduled onto a shared
// [matrix.Scheduler] and run asynchronously, which is what gives
// supersession its meaning across submissions: a second push for the same
// (workflow, ref, platform, configuration) key cancels the in-flight jobs
// of the first unless the ref is the stable reference.
//
// Each connection performs one request/response exchange and is then
// closed.
package server
