package execx

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// StubCall records one invocation seen by a StubRunner.
type StubCall struct {
	Name string
	Args []string
	Dir  string
}

// StubResponse is the canned outcome for a stubbed command line.
type StubResponse struct {
	Result CmdResult
	Err    error
}

// StubRunner is a scripted Runner for tests. Commands are matched by the
// full command line (name and args joined with spaces); unmatched commands
// fall back to Default or fail loudly.
type StubRunner struct {
	mu        sync.Mutex
	Responses map[string]StubResponse
	Default   *StubResponse
	Missing   map[string]bool
	Calls     []StubCall
}

// NewStubRunner creates an empty StubRunner.
func NewStubRunner() *StubRunner {
	return &StubRunner{
		Responses: make(map[string]StubResponse),
		Missing:   make(map[string]bool),
	}
}

// Stub registers stdout for an exact command line, e.g. "git --version".
func (s *StubRunner) Stub(cmdline, stdout string) {
	s.Responses[cmdline] = StubResponse{Result: CmdResult{Stdout: stdout}}
}

// StubExit registers a non-zero exit for an exact command line.
func (s *StubRunner) StubExit(cmdline string, code int, stderr string) {
	s.Responses[cmdline] = StubResponse{Result: CmdResult{Stderr: stderr, ExitCode: code}}
}

// StubErr registers an execution failure for an exact command line.
func (s *StubRunner) StubErr(cmdline string, err error) {
	s.Responses[cmdline] = StubResponse{Err: err}
}

// MarkMissing makes LookPath fail for name.
func (s *StubRunner) MarkMissing(name string) {
	s.Missing[name] = true
}

func (s *StubRunner) Run(ctx context.Context, name string, args []string, opts RunOpts) (CmdResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, StubCall{Name: name, Args: args, Dir: opts.Dir})

	key := commandLine(name, args)
	if resp, ok := s.Responses[key]; ok {
		return resp.Result, resp.Err
	}
	if s.Default != nil {
		return s.Default.Result, s.Default.Err
	}
	return CmdResult{}, fmt.Errorf("execx: no stub registered for %q", key)
}

func (s *StubRunner) LookPath(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Missing[name] {
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	return "/usr/bin/" + name, nil
}

// CallLines returns the recorded invocations as joined command lines.
func (s *StubRunner) CallLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]string, 0, len(s.Calls))
	for _, c := range s.Calls {
		lines = append(lines, commandLine(c.Name, c.Args))
	}
	return lines
}

func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
