package collect

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/rcr/ccdb/events"
)

// Supervisor runs the top-level build command in its own process group with
// the session-primed environment, reports its start and stop, and forwards
// termination signals to the whole group.
type Supervisor struct {
	collector *Collector
	session   *Session
}

// NewSupervisor pairs a collector with the session it serves.
func NewSupervisor(collector *Collector, session *Session) *Supervisor {
	return &Supervisor{collector: collector, session: session}
}

// Run executes the build command and returns its exit code: the command's
// own code on normal exit, 128 plus the signal number on signal death.
func (s *Supervisor) Run(arguments []string) (int, error) {
	workingDir, err := os.Getwd()
	if err != nil {
		return 0, fmt.Errorf("failed to read working directory: %v", err)
	}

	executable, err := ResolveExecutable(arguments[0], workingDir, os.Getenv("PATH"), "")
	if err != nil {
		return 0, fmt.Errorf("failed to resolve build command: %v", err)
	}

	env := s.session.ChildEnvironment(os.Environ())

	cmd := exec.Command(executable, arguments[1:]...)
	cmd.Args = arguments
	cmd.Dir = workingDir
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start build command: %v", err)
	}

	correlation := uuid.NewString()
	s.collector.Report(Report{
		Id:        correlation,
		Pid:       uint32(cmd.Process.Pid),
		Ppid:      uint32(os.Getpid()),
		Timestamp: time.Now().UTC(),
		Started: &events.Execution{
			Executable:  executable,
			Arguments:   arguments,
			WorkingDir:  workingDir,
			Environment: EnvironmentMap(env),
		},
	})

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	forwardDone := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-signals:
				log.Debugf("forwarding %v to the build process group", sig)
				if err := unix.Kill(-cmd.Process.Pid, sig.(syscall.Signal)); err != nil {
					log.Warnf("failed to signal build process group: %v", err)
				}
			case <-forwardDone:
				return
			}
		}
	}()

	waitErr := cmd.Wait()
	close(forwardDone)
	signal.Stop(signals)

	status := unix.WaitStatus(cmd.ProcessState.Sys().(syscall.WaitStatus))
	if status.Signaled() {
		number := int32(status.Signal())
		s.collector.Report(Report{
			Id:        correlation,
			Pid:       uint32(cmd.Process.Pid),
			Timestamp: time.Now().UTC(),
			Signalled: &events.Signalled{Number: number},
		})
		return 128 + int(number), nil
	}

	exitCode := cmd.ProcessState.ExitCode()
	s.collector.Report(Report{
		Id:         correlation,
		Pid:        uint32(cmd.Process.Pid),
		Timestamp:  time.Now().UTC(),
		Terminated: &events.Terminated{Status: int64(exitCode)},
	})

	if waitErr != nil {
		if _, isExit := waitErr.(*exec.ExitError); !isExit {
			return exitCode, fmt.Errorf("failed to wait for build command: %v", waitErr)
		}
	}
	return exitCode, nil
}
