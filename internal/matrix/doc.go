// Package matrix schedules and runs the (platform × configuration) build
// matrix.
//
// Each matrix cell becomes a [Job] identified by a concurrency group
// [Key] of (workflow, ref, platform, configuration). The [Scheduler]
// enforces the supersession policy: submitting a job whose key matches an
// in-flight job cancels the older one, unless the ref is the stable
// reference, in which case both run to completion. Cancellation is
// cooperative; running jobs observe it at checkpoints between steps and
// never tear down a build tree already handed to the assembler.
//
// [Run] drives the full pipeline for a workflow: cells execute in parallel,
// each building one tree per architecture through the external toolchain,
// multi-architecture cells are assembled into universal trees, and finished
// trees are archived. Failures are isolated to their originating cell; the
// run's report lists a terminal state per cell and the overall process
// succeeds only when every cell did.
package matrix
