package protocol

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	req := &SubmitRequest{
		Workflow: "release",
		Ref:      "feature-x",
		Cells: []CellSpec{
			{Platform: "darwin", Config: "release", Arches: []string{"arm64", "x86_64"}},
		},
		Manifest: []string{"lib/**"},
	}

	line, err := Encode(CmdSubmit, req)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.HasSuffix(line, []byte("\n")) {
		t.Fatal("encoded message missing newline delimiter")
	}

	env, err := Decode(line)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Command != CmdSubmit {
		t.Fatalf("command = %q, want submit", env.Command)
	}

	got, err := DecodePayload[SubmitRequest](env.Payload)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if got.Workflow != "release" || got.Ref != "feature-x" {
		t.Fatalf("payload = %+v", got)
	}
	if len(got.Cells) != 1 || len(got.Cells[0].Arches) != 2 {
		t.Fatalf("cells = %+v", got.Cells)
	}
}

func TestDecodeMissingCommand(t *testing.T) {
	if _, err := Decode([]byte(`{"payload":{}}`)); err == nil {
		t.Fatal("Decode accepted an envelope without a command")
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte("not json\n")); err == nil {
		t.Fatal("Decode accepted malformed input")
	}
}

func TestDecodePayloadEmpty(t *testing.T) {
	got, err := DecodePayload[StatusResult](nil)
	if err != nil {
		t.Fatalf("DecodePayload(nil): %v", err)
	}
	if got.Running {
		t.Fatal("zero value expected for empty payload")
	}
}
