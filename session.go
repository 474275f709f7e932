package hfstol

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// session is one long-lived lookup engine subprocess running in pipe mode.
// Forms are written one per line on stdin; the engine answers each with a
// block of output lines terminated by a blank line. A session serves one
// lookup at a time; the handle serializes access to it.
type session struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   *bufio.Reader
}

// startSession launches the engine against the given lexicon.
func startSession(exe, lexicon string) (*session, error) {
	cmd := exec.Command(exe, "--quiet", "--pipe-mode", lexicon)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdin pipe: %v", ErrEngineFailure, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrEngineFailure, err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: starting %s: %v", ErrEngineFailure, exe, err)
	}
	return &session{cmd: cmd, stdin: stdin, out: bufio.NewReader(stdout)}, nil
}

// lookup feeds one form to the engine and returns the raw lines of its
// output block. An error means the engine crashed or the pipe broke
// mid-lookup; the session must be discarded afterwards.
func (s *session) lookup(form string) ([]string, error) {
	if _, err := io.WriteString(s.stdin, form+"\n"); err != nil {
		return nil, fmt.Errorf("%w: writing form: %v", ErrEngineFailure, err)
	}
	var lines []string
	for {
		raw, err := s.out.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("%w: reading output block: %v", ErrEngineFailure, err)
		}
		line := strings.TrimRight(raw, "\r\n")
		if line == "" {
			return lines, nil
		}
		lines = append(lines, line)
	}
}

// close terminates the engine subprocess and reaps it.
func (s *session) close() {
	s.stdin.Close()
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd.Wait()
}
