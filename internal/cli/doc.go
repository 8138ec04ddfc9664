// Parses flags and dispatches the unibuild commands.
//
// The CLI accepts the following global flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Enable verbose output.
//	-d, --debug     Enable debug output.
//	-s, --socket    Unix socket path.
//
// Flags override build-time defaults set via linker flags. After parsing, the
// global logger is reconfigured to reflect the final level before the
// selected command runs.
//
// The run command executes a workflow matrix in the foreground and exits.
// The serve command starts the submission daemon; submit, status, and
// shutdown talk to a running daemon over its Unix socket.
package cli
