package server

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/forgeline/unibuild/internal/matrix"
	"github.com/forgeline/unibuild/internal/merge"
	"github.com/forgeline/unibuild/internal/paths"
	"github.com/forgeline/unibuild/internal/protocol"
)

// File mode applied to the Unix socket. Owner and group get read-write
// (required for connect); others get no access.
const socketMode = 0660

// Holds server configuration.
//
// The external collaborators are injected so the daemon itself stays
// independent of any particular toolchain backend.
type Config struct {
	SocketPath  string // Override for the Unix socket path. Empty uses the default.
	StableRef   string // Reference exempt from supersession. Empty uses "main".
	Dist        string // Output directory for archives. Empty uses the default.
	Prefix      string // Archive name prefix.
	Compression string // Archive codec. Empty selects zstd.

	Toolchain matrix.Toolchain
	Bootstrap matrix.Bootstrap
	Combiner  merge.Combiner
	Bindings  matrix.BindingPackager // Optional.
}

// Listens on a Unix domain socket and dispatches commands.
type Server struct {
	cfg        Config
	socketPath string
	sched      *matrix.Scheduler
	listener   net.Listener
	startedAt  time.Time
	done       chan struct{}

	mu       sync.Mutex
	runs     int  // Total number of workflow submissions processed.
	stopping bool // Set once shutdown has begun; rejects new submissions.
	wg       sync.WaitGroup

	stopOnce sync.Once
}

// Creates a new server instance.
//
// The socket is not opened until [Start] is called.
func New(cfg Config) (*Server, error) {
	if cfg.Toolchain == nil || cfg.Bootstrap == nil || cfg.Combiner == nil {
		return nil, fmt.Errorf("%w: toolchain, bootstrap, and combiner are required", ErrServer)
	}

	socketPath := cfg.SocketPath
	if socketPath == "" {
		socketPath = paths.Socket()
	}
	if cfg.Dist == "" {
		cfg.Dist = paths.Dist()
	}

	return &Server{
		cfg:        cfg,
		socketPath: socketPath,
		sched:      matrix.NewScheduler(cfg.StableRef, nil),
		done:       make(chan struct{}),
	}, nil
}

// Opens the Unix socket and begins accepting connections.
func (s *Server) Start() error {
	listener, err := listen(s.socketPath)
	if err != nil {
		return err
	}

	s.listener = listener
	s.startedAt = time.Now()

	if err := writePID(); err != nil {
		slog.Warn("failed to write PID file", "error", err)
	}

	slog.Info("server listening on socket", "path", s.socketPath)

	go s.accept()
	return nil
}

// Creates the Unix socket listener, removes any stale socket from a
// previous run, and applies permissions.
func listen(socketPath string) (net.Listener, error) {
	if err := os.MkdirAll(paths.Runtime(), paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServer, err)
	}

	os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to listen on %s: %w", ErrServer, socketPath, err)
	}

	if err := os.Chmod(socketPath, socketMode); err != nil {
		listener.Close()
		return nil, fmt.Errorf("%w: failed to chmod socket %s: %w", ErrServer, socketPath, err)
	}

	return listener, nil
}

// Writes the daemon PID file.
func writePID() error {
	return os.WriteFile(paths.PIDFile(), []byte(strconv.Itoa(os.Getpid())), paths.DefaultFileMode)
}

// Shuts down the server.
//
// In-flight workflow runs finish before Stop returns; the scheduler never
// abandons a job mid-step. Safe to call more than once.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopping = true
		s.mu.Unlock()

		close(s.done)

		if s.listener != nil {
			s.listener.Close()
		}

		s.wg.Wait()

		os.Remove(s.socketPath)
		os.Remove(paths.PIDFile())
	})

	return nil
}

// Blocks until the server stops.
func (s *Server) Wait() {
	<-s.done
}

// Accepts connections in a loop until the server shuts down.
func (s *Server) accept() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				slog.Error("accept error", "error", err)
				continue
			}
		}

		go s.handle(conn)
	}
}

// Processes a single connection.
//
// Reads one newline-delimited JSON message, dispatches the command, and
// writes the response. The connection is closed after one exchange.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	line, err := reader.ReadBytes('\n')
	if err != nil {
		slog.Error("read error", "error", err)
		return
	}

	env, err := protocol.Decode(line)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	slog.Info("command received", "command", env.Command)

	switch env.Command {
	case protocol.CmdSubmit:
		s.handleSubmit(conn, env.Payload)
	case protocol.CmdStatus:
		s.handleStatus(conn)
	case protocol.CmdShutdown:
		s.handleShutdown(conn)
	default:
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{
			Message: fmt.Sprintf("unknown command %q", env.Command),
		})
	}
}

// Writes a response envelope to the connection.
func (s *Server) respond(conn net.Conn, cmd protocol.Command, payload any) {
	line, err := protocol.Encode(cmd, payload)
	if err != nil {
		slog.Error("encode error", "error", err)
		return
	}
	if _, err := conn.Write(line); err != nil {
		slog.Error("write error", "error", err)
	}
}
