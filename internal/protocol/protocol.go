package protocol

import (
	"encoding/json"
	"fmt"
)

// Command names carried on the wire.
type Command string

const (
	CmdSubmit   Command = "submit"
	CmdStatus   Command = "status"
	CmdShutdown Command = "shutdown"
	CmdOK       Command = "ok"
	CmdError    Command = "error"
)

// A single wire message: one command plus its JSON payload, newline
// delimited on the socket.
type Envelope struct {
	Command Command         `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// One matrix cell of a submitted workflow.
type CellSpec struct {
	Platform string   `json:"platform"`
	Config   string   `json:"config"`
	Arches   []string `json:"arches"`
}

// A workflow submission.
//
// Submitting a workflow whose (workflow, ref, platform, config) keys match
// in-flight jobs supersedes those jobs unless ref is the stable reference.
type SubmitRequest struct {
	Workflow string     `json:"workflow"`
	Ref      string     `json:"ref"`
	Cells    []CellSpec `json:"cells"`
	Manifest []string   `json:"manifest,omitempty"`
}

// Acknowledges a submission. The run proceeds asynchronously.
type SubmitResult struct {
	Accepted int `json:"accepted"` // Number of cells scheduled.
}

// Daemon status.
type StatusResult struct {
	Running  bool     `json:"running"`
	Version  string   `json:"version"`
	Pid      int      `json:"pid"`
	Uptime   string   `json:"uptime"`
	Runs     int      `json:"runs"`
	Inflight []string `json:"inflight,omitempty"`
}

// Carries a failure back to the client.
type ErrorResult struct {
	Message string `json:"message"`
}

// Serializes an envelope with its payload to one wire message.
func Encode(cmd Command, payload any) ([]byte, error) {
	env := Envelope{Command: cmd}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		env.Payload = raw
	}

	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return append(out, '\n'), nil
}

// Parses one wire message into its envelope.
func Decode(line []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Command == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing command")
	}
	return env, nil
}

// Unmarshals an envelope payload into a concrete type.
func DecodePayload[T any](raw json.RawMessage) (*T, error) {
	var v T
	if len(raw) == 0 {
		return &v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &v, nil
}
