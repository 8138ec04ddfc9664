package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/forgeline/unibuild/internal"
	"github.com/forgeline/unibuild/internal/matrix"
	"github.com/forgeline/unibuild/internal/pack"
	"github.com/forgeline/unibuild/internal/protocol"
)

// Handles a workflow submission.
//
// The submission is acknowledged immediately and the matrix runs
// asynchronously; supersession against in-flight jobs takes effect at
// submission time through the shared scheduler.
func (s *Server) handleSubmit(conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.SubmitRequest](payload)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}
	if req.Workflow == "" || req.Ref == "" || len(req.Cells) == 0 {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{
			Message: "submission requires workflow, ref, and at least one cell",
		})
		return
	}

	cells := make([]matrix.Cell, len(req.Cells))
	for i, c := range req.Cells {
		cells[i] = matrix.Cell{Platform: c.Platform, Config: c.Config, Arches: c.Arches}
	}

	opts := matrix.Options{
		Workflow:  req.Workflow,
		Ref:       req.Ref,
		Cells:     cells,
		Toolchain: s.cfg.Toolchain,
		Bootstrap: s.cfg.Bootstrap,
		Combiner:  s.cfg.Combiner,
		Bindings:  s.cfg.Bindings,
		Archiver: &pack.Archiver{
			Dir:         s.cfg.Dist,
			Prefix:      s.cfg.Prefix,
			Manifest:    req.Manifest,
			Compression: s.cfg.Compression,
		},
	}

	// The stopping flag and the Add share the mutex so that a workflow
	// goroutine can never be registered after Stop has begun waiting.
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{
			Message: "daemon is shutting down",
		})
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		report, err := matrix.Run(context.Background(), s.sched, opts)
		if err != nil {
			slog.Error("workflow run failed to start", "workflow", req.Workflow, "error", err)
			return
		}

		s.mu.Lock()
		s.runs++
		s.mu.Unlock()

		slog.Info("workflow run finished",
			"workflow", req.Workflow,
			"ref", req.Ref,
			"failed", report.Failed(),
			"report", report.String(),
		)
	}()

	s.respond(conn, protocol.CmdOK, &protocol.SubmitResult{Accepted: len(cells)})
}

// Handles a status command.
func (s *Server) handleStatus(conn net.Conn) {
	s.mu.Lock()
	runs := s.runs
	s.mu.Unlock()

	uptime := time.Since(s.startedAt).Truncate(time.Second)

	s.respond(conn, protocol.CmdOK, &protocol.StatusResult{
		Running:  true,
		Version:  internal.VersionString(),
		Pid:      os.Getpid(),
		Uptime:   uptime.String(),
		Runs:     runs,
		Inflight: s.sched.Inflight(),
	})
}

// Handles a shutdown command.
func (s *Server) handleShutdown(conn net.Conn) {
	s.respond(conn, protocol.CmdOK, nil)
	slog.Info("shutdown requested")

	go func() {
		s.Stop()
	}()
}
