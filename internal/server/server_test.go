package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/forgeline/unibuild/internal/matrix"
	"github.com/forgeline/unibuild/internal/protocol"
	"github.com/forgeline/unibuild/internal/tree"
)

type stubToolchain struct {
	mu     sync.Mutex
	builds int
}

func (s *stubToolchain) Build(_ context.Context, spec matrix.BuildSpec) (*tree.Build, error) {
	s.mu.Lock()
	s.builds++
	s.mu.Unlock()

	t := tree.New()
	t.Add("lib/libproj.a", &tree.File{Data: []byte("code-" + spec.Arch), Mode: 0644, Kind: tree.KindArtifact})
	return &tree.Build{Root: "/var/build/" + spec.Arch, Arch: spec.Arch, Tree: t}, nil
}

type stubBootstrap struct{}

func (stubBootstrap) Prepare(_ context.Context, platform, arch string) (string, error) {
	return "/deps/" + platform + "-" + arch, nil
}

type stubCombiner struct{}

func (stubCombiner) Combine(_ context.Context, a, b []byte) ([]byte, error) {
	return append(append([]byte{}, a...), b...), nil
}

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	socket := filepath.Join(t.TempDir(), "unibuild-test.sock")
	srv, err := New(Config{
		SocketPath: socket,
		Dist:       t.TempDir(),
		Prefix:     "proj",
		Toolchain:  &stubToolchain{},
		Bootstrap:  stubBootstrap{},
		Combiner:   stubCombiner{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return srv, socket
}

// Performs one request/response exchange against the daemon socket.
func roundTrip(t *testing.T, socket string, cmd protocol.Command, payload any) protocol.Envelope {
	t.Helper()

	conn, err := net.Dial("unix", socket)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	line, err := protocol.Encode(cmd, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := conn.Write(line); err != nil {
		t.Fatalf("write: %v", err)
	}

	resp, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	env, err := protocol.Decode(resp)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func TestSubmitAndStatus(t *testing.T) {
	srv, socket := startTestServer(t)

	env := roundTrip(t, socket, protocol.CmdSubmit, &protocol.SubmitRequest{
		Workflow: "release",
		Ref:      "main",
		Cells: []protocol.CellSpec{
			{Platform: "linux", Config: "release", Arches: []string{"amd64"}},
		},
	})
	if env.Command != protocol.CmdOK {
		t.Fatalf("submit response = %v", env.Command)
	}

	result, err := protocol.DecodePayload[protocol.SubmitResult](env.Payload)
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Accepted != 1 {
		t.Fatalf("accepted = %d, want 1", result.Accepted)
	}

	// The run is asynchronous; wait for it to land in the counters.
	deadline := time.Now().Add(5 * time.Second)
	for {
		srv.mu.Lock()
		runs := srv.runs
		srv.mu.Unlock()
		if runs == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("workflow run never finished")
		}
		time.Sleep(5 * time.Millisecond)
	}

	env = roundTrip(t, socket, protocol.CmdStatus, nil)
	if env.Command != protocol.CmdOK {
		t.Fatalf("status response = %v", env.Command)
	}
	status, err := protocol.DecodePayload[protocol.StatusResult](env.Payload)
	if err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || status.Runs != 1 {
		t.Fatalf("status = %+v", status)
	}
}

func TestSubmitRejectsIncomplete(t *testing.T) {
	_, socket := startTestServer(t)

	env := roundTrip(t, socket, protocol.CmdSubmit, &protocol.SubmitRequest{Workflow: "release"})
	if env.Command != protocol.CmdError {
		t.Fatalf("response = %v, want error", env.Command)
	}
}

func TestUnknownCommand(t *testing.T) {
	_, socket := startTestServer(t)

	env := roundTrip(t, socket, protocol.Command("frobnicate"), nil)
	if env.Command != protocol.CmdError {
		t.Fatalf("response = %v, want error", env.Command)
	}
}

func TestSubmitRejectedDuringShutdown(t *testing.T) {
	srv, err := New(Config{
		SocketPath: filepath.Join(t.TempDir(), "unibuild-test.sock"),
		Dist:       t.TempDir(),
		Prefix:     "proj",
		Toolchain:  &stubToolchain{},
		Bootstrap:  stubBootstrap{},
		Combiner:   stubCombiner{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv.Stop()

	payload, err := json.Marshal(&protocol.SubmitRequest{
		Workflow: "release",
		Ref:      "main",
		Cells: []protocol.CellSpec{
			{Platform: "linux", Config: "release", Arches: []string{"amd64"}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	client, server := net.Pipe()
	defer client.Close()

	go func() {
		defer server.Close()
		srv.handleSubmit(server, payload)
	}()

	resp, err := bufio.NewReader(client).ReadBytes('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	env, err := protocol.Decode(resp)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Command != protocol.CmdError {
		t.Fatalf("response = %v, want error after shutdown began", env.Command)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatal("New accepted a config without collaborators")
	}
}
