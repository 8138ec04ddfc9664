// Package sandbox runs toolchain builds inside containerd-backed containers.
//
// A [Sandbox] connects to a containerd daemon. For each matrix cell
// architecture it imports the toolchain image, unpacks it for the target
// platform, and starts a [BuildContainer] with a long-running task so that
// build commands can be executed against it. Building for an architecture
// other than the host requires QEMU / binfmt_misc support in the kernel.
//
// The container's build root is captured out as a tar stream and parsed
// into an in-memory build tree; nothing of the container filesystem
// survives the build. [Runner] adapts this machinery to the orchestrator's
// toolchain interface.
//
// Example usage:
//
//	sb, err := sandbox.New("/run/containerd/containerd.sock", "unibuild")
//	if err != nil {
//	    return err
//	}
//	defer sb.Close()
//
//	runner := &sandbox.Runner{
//	    Sandbox: sb,
//	    Image:   "toolchain.tar",
//	    Script:  "cmake --preset $UNIBUILD_CONFIG && cmake --build build",
//	}
package sandbox
