package cli

import (
	"context"
	"log/slog"

	"github.com/forgeline/unibuild/internal/merge"
	"github.com/forgeline/unibuild/internal/paths"
	"github.com/forgeline/unibuild/internal/sandbox"
	"github.com/forgeline/unibuild/internal/server"
)

// Represents the 'unibuild serve' command.
type ServeCmd struct {
	backendFlags
}

// Executes the serve command.
//
// Starts the submission daemon on a Unix domain socket and blocks until the
// context is cancelled (e.g. via SIGINT or SIGTERM) or a shutdown command
// arrives on the socket.
func (c *ServeCmd) Run(ctx context.Context) error {
	sb, runner, err := c.backend()
	if err != nil {
		return err
	}
	defer sb.Close()

	dist := c.Output
	if dist == "" {
		dist = paths.Dist()
	}

	cfg := server.Config{
		SocketPath:  RootCmd.Socket,
		StableRef:   c.StableRef,
		Dist:        dist,
		Prefix:      c.Prefix,
		Compression: c.Compression,
		Toolchain:   runner,
		Bootstrap:   &sandbox.DepRoots{Base: c.DepBase},
		Combiner:    merge.NewLipo(c.Lipo),
	}
	if b := c.bindings(dist); b != nil {
		cfg.Bindings = b
	}

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	slog.Info("unibuild daemon is running")

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		srv.Stop()
	}()

	srv.Wait()
	return srv.Stop()
}
