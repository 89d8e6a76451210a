package smt

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Solver selects the external solver binary.
type Solver int

const (
	Z3 Solver = iota
	CVC4
)

func ParseSolver(name string) (Solver, error) {
	switch name {
	case "z3":
		return Z3, nil
	case "cvc4":
		return CVC4, nil
	}
	return 0, fmt.Errorf("unknown solver %q (expected z3 or cvc4)", name)
}

func (s Solver) String() string {
	if s == CVC4 {
		return "cvc4"
	}
	return "z3"
}

// SMTConfig configures one solver session.
type SMTConfig struct {
	Solver    Solver
	TimeoutMS int
	Debug     bool
}

// SolverState tracks the driver's lifecycle.
type SolverState int

const (
	Starting SolverState = iota
	Ready
	Busy
	Stopped
)

// ResultKind is the outcome of one check-sat.
type ResultKind int

const (
	Unsat ResultKind = iota // property holds
	Sat                     // property violated, model attached
	Unknown                 // timeout or solver gave up
	SolverError
)

// Result is the verdict of one query.
type Result struct {
	Kind  ResultKind
	Model *Model
	Err   string
}

func (r Result) String() string {
	switch r.Kind {
	case Unsat:
		return "holds"
	case Sat:
		return "violated"
	case Unknown:
		return "unknown"
	}
	return "error: " + r.Err
}

// SolverInstance owns a long-lived solver subprocess. The stdin/stdout
// pipes belong exclusively to the instance; queries run strictly
// sequentially.
type SolverInstance struct {
	cfg    SMTConfig
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	state  SolverState
}

func solverArgs(cfg SMTConfig) (string, []string) {
	switch cfg.Solver {
	case CVC4:
		return "cvc4", []string{
			"--lang=smt",
			"--interactive",
			"--no-interactive-prompt",
			"--produce-models",
			fmt.Sprintf("--tlimit-per=%d", cfg.TimeoutMS),
		}
	default:
		return "z3", []string{"-in", fmt.Sprintf("-t:%d", cfg.TimeoutMS)}
	}
}

// newSolverInstance wires a driver over explicit pipes. SpawnSolver uses
// the subprocess's pipes; tests substitute their own.
func newSolverInstance(cfg SMTConfig, stdin io.WriteCloser, stdout io.Reader) *SolverInstance {
	return &SolverInstance{
		cfg:    cfg,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		state:  Starting,
	}
}

// preamble puts a fresh session into print-success mode and selects the
// logic. Any non-success response aborts the session.
func (s *SolverInstance) preamble() error {
	for _, line := range []string{"(set-option :print-success true)", "(set-logic ALL)"} {
		if err := s.command(line); err != nil {
			s.Stop()
			return errors.Wrap(err, "solver preamble")
		}
	}
	s.state = Ready
	return nil
}

// SpawnSolver starts the subprocess and runs the preamble.
func SpawnSolver(cfg SMTConfig) (*SolverInstance, error) {
	bin, args := solverArgs(cfg)
	cmd := exec.Command(bin, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stdout pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "spawn %s", bin)
	}
	inst := newSolverInstance(cfg, stdin, stdout)
	inst.cmd = cmd
	log.Debugf("spawned %s %s", bin, strings.Join(args, " "))

	if err := inst.preamble(); err != nil {
		return nil, err
	}
	return inst, nil
}

// WithSolver runs f inside a scoped session, reaping the subprocess on
// every exit path.
func WithSolver(cfg SMTConfig, f func(*SolverInstance) error) error {
	inst, err := SpawnSolver(cfg)
	if err != nil {
		return err
	}
	defer inst.Stop()
	return f(inst)
}

// State reports the driver's lifecycle state.
func (s *SolverInstance) State() SolverState {
	return s.state
}

// Stop tears the subprocess down: pipes closed, process reaped. Safe to
// call more than once.
func (s *SolverInstance) Stop() {
	if s.state == Stopped {
		return
	}
	s.state = Stopped
	_ = s.stdin.Close()
	if s.cmd != nil {
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.cmd.Wait()
	}
}

func (s *SolverInstance) writeLine(line string) error {
	if s.cfg.Debug {
		log.Debugf("smt> %s", line)
	}
	_, err := io.WriteString(s.stdin, line+"\n")
	return err
}

func (s *SolverInstance) readLine() (string, error) {
	line, err := s.stdout.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if s.cfg.Debug {
		log.Debugf("smt< %s", line)
	}
	return line, nil
}

// command sends one line and requires the solver to answer success.
func (s *SolverInstance) command(line string) error {
	if err := s.writeLine(line); err != nil {
		return errors.Wrap(err, "write to solver")
	}
	resp, err := s.readLine()
	if err != nil {
		return errors.Wrap(err, "read from solver")
	}
	if resp != "success" {
		return fmt.Errorf("solver replied %q to %q", resp, line)
	}
	return nil
}

// RunQuery discharges one obligation: reset, feed the script, check-sat,
// and on sat extract the counter-model. Declaration and I/O failures tear
// the session down; an odd check-sat answer only fails this query.
func (s *SolverInstance) RunQuery(q *Query) Result {
	if s.state != Ready {
		return Result{Kind: SolverError, Err: "solver not ready"}
	}
	s.state = Busy
	defer func() {
		if s.state == Busy {
			s.state = Ready
		}
	}()

	preamble := []string{"(reset)", "(set-option :print-success true)"}
	for _, line := range append(preamble, q.Script.Lines()...) {
		if err := s.command(line); err != nil {
			s.Stop()
			return Result{Kind: SolverError, Err: err.Error()}
		}
	}
	if err := s.writeLine("(check-sat)"); err != nil {
		s.Stop()
		return Result{Kind: SolverError, Err: err.Error()}
	}
	verdict, err := s.readLine()
	if err != nil {
		s.Stop()
		return Result{Kind: SolverError, Err: err.Error()}
	}
	switch verdict {
	case "unsat":
		return Result{Kind: Unsat}
	case "sat":
		model, err := s.getModel(q)
		if err != nil {
			return Result{Kind: Sat, Err: err.Error()}
		}
		return Result{Kind: Sat, Model: model}
	case "unknown", "timeout":
		return Result{Kind: Unknown}
	}
	return Result{Kind: SolverError, Err: "unexpected check-sat response: " + verdict}
}

// getValue queries the model for one term and returns the raw response
// line.
func (s *SolverInstance) getValue(term string) (string, error) {
	if err := s.writeLine(fmt.Sprintf("(get-value (%s))", term)); err != nil {
		return "", errors.Wrap(err, "write to solver")
	}
	line, err := s.readLine()
	if err != nil {
		return "", errors.Wrap(err, "read from solver")
	}
	return line, nil
}
