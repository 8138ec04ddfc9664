package cli

import (
	"bufio"
	"context"
	"fmt"
	"net"

	"github.com/forgeline/unibuild/internal/paths"
	"github.com/forgeline/unibuild/internal/protocol"
)

// Represents the 'unibuild submit' command.
type SubmitCmd struct {
	Workflow string   `default:"release" help:"Workflow name."`
	Ref      string   `arg:"" help:"Reference being built (branch or tag)."`
	Cell     []string `required:"" help:"Matrix cell as platform:config:arch[,arch...]. Repeatable."`
	Manifest []string `help:"Glob patterns selecting tree paths to package."`
}

// Executes the submit command.
//
// Sends the workflow to a running daemon. Submitting onto keys with in-flight
// jobs supersedes those jobs unless the ref is the stable reference.
func (c *SubmitCmd) Run(ctx context.Context) error {
	cells, err := parseCells(c.Cell)
	if err != nil {
		return err
	}

	specs := make([]protocol.CellSpec, len(cells))
	for i, cell := range cells {
		specs[i] = protocol.CellSpec{Platform: cell.Platform, Config: cell.Config, Arches: cell.Arches}
	}

	env, err := exchange(protocol.CmdSubmit, &protocol.SubmitRequest{
		Workflow: c.Workflow,
		Ref:      c.Ref,
		Cells:    specs,
		Manifest: c.Manifest,
	})
	if err != nil {
		return err
	}

	result, err := protocol.DecodePayload[protocol.SubmitResult](env.Payload)
	if err != nil {
		return err
	}

	fmt.Printf("accepted %d cells for %s @ %s\n", result.Accepted, c.Workflow, c.Ref)
	return nil
}

// Represents the 'unibuild status' command.
type StatusCmd struct{}

// Executes the status command.
func (c *StatusCmd) Run(ctx context.Context) error {
	env, err := exchange(protocol.CmdStatus, nil)
	if err != nil {
		return err
	}

	status, err := protocol.DecodePayload[protocol.StatusResult](env.Payload)
	if err != nil {
		return err
	}

	fmt.Printf("version: %s\n", status.Version)
	fmt.Printf("pid:     %d\n", status.Pid)
	fmt.Printf("uptime:  %s\n", status.Uptime)
	fmt.Printf("runs:    %d\n", status.Runs)
	for _, key := range status.Inflight {
		fmt.Printf("inflight: %s\n", key)
	}
	return nil
}

// Represents the 'unibuild shutdown' command.
type ShutdownCmd struct{}

// Executes the shutdown command.
func (c *ShutdownCmd) Run(ctx context.Context) error {
	_, err := exchange(protocol.CmdShutdown, nil)
	return err
}

// Performs one request/response exchange with the daemon socket.
func exchange(cmd protocol.Command, payload any) (protocol.Envelope, error) {
	socket := RootCmd.Socket
	if socket == "" {
		socket = paths.Socket()
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return protocol.Envelope{}, fmt.Errorf("daemon not reachable at %s: %w", socket, err)
	}
	defer conn.Close()

	line, err := protocol.Encode(cmd, payload)
	if err != nil {
		return protocol.Envelope{}, err
	}
	if _, err := conn.Write(line); err != nil {
		return protocol.Envelope{}, err
	}

	resp, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return protocol.Envelope{}, err
	}

	env, err := protocol.Decode(resp)
	if err != nil {
		return protocol.Envelope{}, err
	}

	if env.Command == protocol.CmdError {
		result, err := protocol.DecodePayload[protocol.ErrorResult](env.Payload)
		if err != nil {
			return protocol.Envelope{}, err
		}
		return protocol.Envelope{}, fmt.Errorf("daemon error: %s", result.Message)
	}

	return env, nil
}
