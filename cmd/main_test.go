package main

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/google/shlex"
)

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		args     []string
		wantCmd  string
		wantRest []string
	}{
		{nil, cmdServe, nil},
		{[]string{"--port", "9000"}, cmdServe, []string{"--port", "9000"}},
		{[]string{"shell", "-v"}, cmdShell, []string{"-v"}},
		{[]string{"exec", "objective", "change"}, cmdExec, []string{"objective", "change"}},
	}
	for _, tt := range tests {
		cmd, rest := splitCommand(tt.args)
		if cmd != tt.wantCmd || !reflect.DeepEqual(rest, tt.wantRest) {
			t.Fatalf("splitCommand(%v) = %q %v, want %q %v", tt.args, cmd, rest, tt.wantCmd, tt.wantRest)
		}
	}
}

func TestQuoteArgs_RoundTrip(t *testing.T) {
	tests := [][]string{
		{"objective", "change"},
		{"mode", "set", "sample prep"},
		{"mode", "set", `a "quoted" \ word`},
		{"mode", "set", "it's", "#1"},
	}
	for _, args := range tests {
		line := quoteArgs(args)
		got, err := shlex.Split(line)
		if err != nil {
			t.Fatalf("split %q: %v", line, err)
		}
		if !reflect.DeepEqual(got, args) {
			t.Fatalf("quoteArgs(%q) = %q splits to %q", args, line, got)
		}
	}
}

// execRun runs the exec command against an in-memory database.
func execRun(t *testing.T, in string, interactive bool, args ...string) (int, string) {
	t.Helper()
	var out bytes.Buffer
	argv := append([]string{cmdExec, "--db-path", ":memory:"}, args...)
	code := run(argv, stdio{in: strings.NewReader(in), out: &out, interactive: interactive})
	return code, out.String()
}

func TestRun_UnknownCommand(t *testing.T) {
	if code := run([]string{"calibrate"}, stdio{interactive: true}); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
}

func TestRun_ExecWithoutLine(t *testing.T) {
	if code, _ := execRun(t, "", true); code != 2 {
		t.Fatalf("expected exit 2 on a terminal, got %d", code)
	}
	if code, _ := execRun(t, "", false); code != 2 {
		t.Fatalf("expected exit 2 on empty stdin, got %d", code)
	}
}

func TestRun_ExecCommandFlagsShareState(t *testing.T) {
	code, out := execRun(t, "", true, "-c", "tube move up", "-c", "tube move get")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (output %q)", code, out)
	}
	if out != "Tube is moving up\nTube is moving upwards\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRun_ExecStopsAtFirstFailure(t *testing.T) {
	code, out := execRun(t, "", true, "-c", "tube move up", "-c", "objective change", "-c", "objective get")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	want := "Tube is moving up\nDenied: Change of objective is not allowed while tube moving\n"
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestRun_ExecScriptFromStdin(t *testing.T) {
	script := "mode set capture\n# reset run\nobjective change\nobjective history\n"
	code, out := execRun(t, script, false)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (output %q)", code, out)
	}
	want := "Mode set to capture\nObjective changed to 2\nPrevious objectives: 1 -1\n"
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestRun_ExecKeepsArgumentQuoting(t *testing.T) {
	code, out := execRun(t, "", true, "mode", "set", "sample prep")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if out != "Unknown mode: sample prep\n" {
		t.Fatalf("argument should reach the shell as one token, got %q", out)
	}
}
