package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Executor runs a server command and returns its output. *qm.Manager
// satisfies it.
type Executor interface {
	Execute(ctx context.Context, command string) (string, error)
}

type setup struct {
	exec   Executor
	logger zerolog.Logger
}

// Run provisions the account: every file in accountFiles with its dictionary,
// then every program in programs. Commands the server rejects are logged and
// skipped so a rerun over an existing account completes; transport failures
// abort.
func Run(ctx context.Context, exec Executor, logger zerolog.Logger) error {
	s := &setup{exec: exec, logger: logger}
	for _, file := range accountFiles {
		if err := s.createFile(ctx, file); err != nil {
			return err
		}
	}
	for _, prog := range programs {
		if err := s.installProgram(ctx, prog); err != nil {
			return err
		}
	}
	logger.Info().
		Int("files", len(accountFiles)).
		Int("programs", len(programs)).
		Msg("account provisioning complete")
	return nil
}

func (s *setup) createFile(ctx context.Context, file fileDef) error {
	s.logger.Info().Str("file", file.Name).Int("items", len(file.Items)).Msg("creating file")
	if _, err := s.run(ctx, "CREATE.FILE "+file.Name+" DIRECTORY"); err != nil {
		return err
	}
	for _, item := range file.Items {
		cmd := fmt.Sprintf("CREATE.DICT %s %s TYPE=%s", file.Name, item.Name, item.Type)
		if _, err := s.run(ctx, cmd); err != nil {
			return err
		}
		cmd = fmt.Sprintf("MODIFY.DICT %s %s DESCRIPTION='%s'", file.Name, item.Name, item.Description)
		if _, err := s.run(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// installProgram feeds the program source through the line editor and
// compiles it.
func (s *setup) installProgram(ctx context.Context, prog program) error {
	s.logger.Info().Str("program", prog.Name).Msg("installing program")
	resp, err := s.exec.Execute(ctx, "ED "+prog.Name)
	if err != nil {
		return fmt.Errorf("command %q failed: %w", "ED "+prog.Name, err)
	}
	if strings.HasPrefix(resp, "ERROR") {
		// The editor is not open; feeding it lines would garble the session.
		s.logger.Error().Str("program", prog.Name).Str("response", resp).Msg("editor unavailable, skipping program")
		return nil
	}
	for _, line := range programLines(prog.Source) {
		if _, err := s.run(ctx, "I "+line); err != nil {
			return err
		}
	}
	if _, err := s.run(ctx, "FS"); err != nil {
		return err
	}
	if _, err := s.run(ctx, "BASIC "+prog.Name); err != nil {
		return err
	}
	if prog.Register {
		if _, err := s.run(ctx, "WS.REGISTER "+prog.Name); err != nil {
			return err
		}
	}
	return nil
}

// run executes one command. A transport failure is returned; a response the
// server prefixes with ERROR is only logged, since most come from objects
// that already exist.
func (s *setup) run(ctx context.Context, command string) (string, error) {
	resp, err := s.exec.Execute(ctx, command)
	if err != nil {
		return "", fmt.Errorf("command %q failed: %w", command, err)
	}
	if strings.HasPrefix(resp, "ERROR") {
		s.logger.Warn().Str("command", command).Str("response", resp).Msg("server rejected command")
	}
	return resp, nil
}

func programLines(source string) []string {
	return strings.Split(strings.Trim(source, "\n"), "\n")
}
