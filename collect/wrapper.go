package collect

import (
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/rcr/ccdb/events"
)

// RunWrapper is the executor standing in for a compiler: it reports its own
// invocation to the collector, runs the shadowed tool, reports the outcome,
// and exits with the tool's status unchanged.
func RunWrapper(arguments []string, environ []string) int {
	name := filepath.Base(arguments[0])

	workingDir, err := os.Getwd()
	if err != nil {
		log.Errorf("failed to read working directory: %v", err)
		return 127
	}

	real, err := ResolveExecutable(name, workingDir, getEnv(environ, "PATH"), getEnv(environ, KeyWrapperDir))
	if err != nil {
		log.Errorf("failed to find the real %s: %v", name, err)
		return 127
	}

	destination := getEnv(environ, KeyDestination)
	var reporter *Reporter
	if destination != "" {
		reporter = NewReporter(destination)
	} else {
		log.Debugf("no session locator in the environment; running %s unreported", name)
	}

	correlation := uuid.NewString()
	pid := uint32(os.Getpid())
	ppid := uint32(os.Getppid())

	if reporter != nil {
		reporter.Send(Report{
			Id:        correlation,
			Pid:       pid,
			Ppid:      ppid,
			Timestamp: time.Now().UTC(),
			Started: &events.Execution{
				Executable:  real,
				Arguments:   arguments,
				WorkingDir:  workingDir,
				Environment: EnvironmentMap(environ),
			},
		})
	}

	cmd := exec.Command(real, arguments[1:]...)
	cmd.Args = append([]string{arguments[0]}, arguments[1:]...)
	cmd.Path = real
	cmd.Env = environ
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	runErr := cmd.Run()

	exitCode := 0
	if cmd.ProcessState != nil {
		status := unix.WaitStatus(cmd.ProcessState.Sys().(syscall.WaitStatus))
		if status.Signaled() {
			number := int32(status.Signal())
			if reporter != nil {
				reporter.Send(Report{
					Id:        correlation,
					Pid:       pid,
					Timestamp: time.Now().UTC(),
					Signalled: &events.Signalled{Number: number},
				})
			}
			return 128 + int(number)
		}
		exitCode = cmd.ProcessState.ExitCode()
	} else if runErr != nil {
		log.Errorf("failed to run %s: %v", real, runErr)
		return 127
	}

	if reporter != nil {
		reporter.Send(Report{
			Id:         correlation,
			Pid:        pid,
			Timestamp:  time.Now().UTC(),
			Terminated: &events.Terminated{Status: int64(exitCode)},
		})
	}
	return exitCode
}
