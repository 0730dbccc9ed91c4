package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/emailorg/mvmail/internal/qm"
	"github.com/emailorg/mvmail/internal/testutil"
)

// recordingExecutor captures every command. The respond hook overrides the
// default OK answer, the fail hook simulates a transport failure.
type recordingExecutor struct {
	commands []string
	respond  func(command string) string
	fail     func(command string) error
}

func (r *recordingExecutor) Execute(_ context.Context, command string) (string, error) {
	if r.fail != nil {
		if err := r.fail(command); err != nil {
			return "", err
		}
	}
	r.commands = append(r.commands, command)
	if r.respond != nil {
		if resp := r.respond(command); resp != "" {
			return resp, nil
		}
	}
	return "OK", nil
}

func countPrefix(commands []string, prefix string) int {
	n := 0
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, prefix) {
			n++
		}
	}
	return n
}

func contains(commands []string, command string) bool {
	for _, cmd := range commands {
		if cmd == command {
			return true
		}
	}
	return false
}

func TestRun(t *testing.T) {
	t.Run("issues the full provisioning sequence", func(t *testing.T) {
		exec := &recordingExecutor{}
		if err := Run(context.Background(), exec, zerolog.Nop()); err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		if len(exec.commands) == 0 {
			t.Fatal("Expected commands to be issued, got none")
		}
		if exec.commands[0] != "CREATE.FILE USERS DIRECTORY" {
			t.Errorf("Expected first command 'CREATE.FILE USERS DIRECTORY', got '%s'", exec.commands[0])
		}
		if exec.commands[1] != "CREATE.DICT USERS ID TYPE=C" {
			t.Errorf("Expected second command 'CREATE.DICT USERS ID TYPE=C', got '%s'", exec.commands[1])
		}
		if exec.commands[2] != "MODIFY.DICT USERS ID DESCRIPTION='User ID (UUID)'" {
			t.Errorf("Expected third command to set the description, got '%s'", exec.commands[2])
		}

		counts := map[string]int{
			"CREATE.FILE ": 12,
			"CREATE.DICT ": 111,
			"MODIFY.DICT ": 111,
			"ED ":          3,
			"BASIC ":       3,
			"WS.REGISTER ": 1,
		}
		for prefix, want := range counts {
			if got := countPrefix(exec.commands, prefix); got != want {
				t.Errorf("Expected %d commands with prefix %q, got %d", want, prefix, got)
			}
		}
		if got := countPrefix(exec.commands, "FS"); got != 3 {
			t.Errorf("Expected 3 FS commands, got %d", got)
		}
		if !contains(exec.commands, "WS.REGISTER EMAIL.WS") {
			t.Error("Expected EMAIL.WS to be registered with the web service gateway")
		}

		// Every file is created before the first program is installed.
		firstED := -1
		lastCreate := -1
		for i, cmd := range exec.commands {
			if strings.HasPrefix(cmd, "ED ") && firstED == -1 {
				firstED = i
			}
			if strings.HasPrefix(cmd, "CREATE.") {
				lastCreate = i
			}
		}
		if firstED < lastCreate {
			t.Error("Expected all files to be created before installing programs")
		}
	})

	t.Run("skips a program when the editor does not open", func(t *testing.T) {
		exec := &recordingExecutor{
			respond: func(command string) string {
				if command == "ED EMAIL.QUERY" {
					return "ERROR: not available"
				}
				return ""
			},
		}
		if err := Run(context.Background(), exec, zerolog.Nop()); err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		if contains(exec.commands, "BASIC EMAIL.QUERY") {
			t.Error("Expected EMAIL.QUERY not to be compiled after the editor refused to open")
		}
		if countPrefix(exec.commands, "I ") == 0 {
			t.Error("Expected the remaining programs to still be fed to the editor")
		}
		if !contains(exec.commands, "BASIC EMAIL.PROCESS") {
			t.Error("Expected EMAIL.PROCESS to be installed despite the earlier skip")
		}
		if !contains(exec.commands, "WS.REGISTER EMAIL.WS") {
			t.Error("Expected EMAIL.WS to be installed despite the earlier skip")
		}
	})

	t.Run("tolerates rejected commands", func(t *testing.T) {
		exec := &recordingExecutor{
			respond: func(command string) string {
				if strings.HasPrefix(command, "CREATE.FILE ") {
					return "ERROR: file exists"
				}
				return ""
			},
		}
		if err := Run(context.Background(), exec, zerolog.Nop()); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if got := countPrefix(exec.commands, "CREATE.DICT "); got != 111 {
			t.Errorf("Expected dictionaries to be created for existing files, got %d commands", got)
		}
	})

	t.Run("aborts on a transport failure", func(t *testing.T) {
		errTransport := errors.New("connection reset")
		exec := &recordingExecutor{
			fail: func(command string) error {
				if strings.HasPrefix(command, "CREATE.DICT THREADS ") {
					return errTransport
				}
				return nil
			},
		}
		err := Run(context.Background(), exec, zerolog.Nop())
		if !errors.Is(err, errTransport) {
			t.Fatalf("Expected the transport failure to abort the run, got %v", err)
		}
		if countPrefix(exec.commands, "ED ") != 0 {
			t.Error("Expected no programs to be installed after the abort")
		}
	})
}

func TestRunAgainstServer(t *testing.T) {
	store := testutil.NewStore()
	srv := testutil.NewServer(t, store)

	var executed int
	store.ExecuteFunc = func(command string) (string, bool) {
		executed++
		return "", false
	}

	mgr := qm.NewManager(srv.Config(), zerolog.Nop())
	t.Cleanup(func() { mgr.Close() })

	if err := Run(context.Background(), mgr, zerolog.Nop()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if executed == 0 {
		t.Error("Expected the provisioning commands to reach the server")
	}
}

func TestDryRun(t *testing.T) {
	var out bytes.Buffer
	if err := Run(context.Background(), printExecutor{w: &out}, zerolog.Nop()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if lines[0] != "CREATE.FILE USERS DIRECTORY" {
		t.Errorf("Expected the dry run to start with the USERS file, got '%s'", lines[0])
	}
	if len(lines) < 300 {
		t.Errorf("Expected the dry run to print the full command stream, got %d lines", len(lines))
	}
}
