package main

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rcr/ccdb/collect"
	"github.com/rcr/ccdb/events"
)

// quiescenceTimeout bounds the final drain of in-flight reports after the
// root process exits.
const quiescenceTimeout = 5 * time.Second

type interceptOptions struct {
	output       string
	forcePreload bool
	forceWrapper bool
	library      string
	verbose      bool
}

func newInterceptCommand() *cobra.Command {
	var opts interceptOptions

	cmd := &cobra.Command{
		Use:           "intercept --output <path> [flags] -- <build command>",
		Short:         "captures the commands a build executes into an event log",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(opts.verbose)

			code, err := runIntercept(opts, args)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			os.Exit(code)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.output, "output", "", "path of the event log (required)")
	cmd.Flags().BoolVar(&opts.forcePreload, "force-preload", false, "force the preload interception mode")
	cmd.Flags().BoolVar(&opts.forceWrapper, "force-wrapper", false, "force the wrapper interception mode")
	cmd.Flags().StringVar(&opts.library, "library", "", "path of the preload interception library")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "enable debug logging")
	cmd.MarkFlagRequired("output")
	cmd.MarkFlagsMutuallyExclusive("force-preload", "force-wrapper")
	return cmd
}

// runIntercept supervises the build and returns the build's exit code. Any
// returned error means the collector could not be set up or the build
// command could not be resolved, started or waited for.
func runIntercept(opts interceptOptions, buildArgs []string) (int, error) {
	if opts.forcePreload && opts.library == "" {
		opts.library = defaultPreloadLibrary
	}

	writer, err := events.NewWriter(opts.output)
	if err != nil {
		return 0, err
	}
	defer writer.Close()

	socketDir, err := os.MkdirTemp("", "ccdb-session-")
	if err != nil {
		return 0, fmt.Errorf("failed to create session directory: %v", err)
	}
	defer os.RemoveAll(socketDir)

	collector, err := collect.NewCollector(socketDir+"/collector.sock", writer)
	if err != nil {
		return 0, err
	}

	session, cleanup, err := buildSession(opts, collector.Destination())
	if err != nil {
		collector.Shutdown(0)
		return 0, err
	}
	defer cleanup()

	supervisor := collect.NewSupervisor(collector, session)
	code, runErr := supervisor.Run(buildArgs)

	if err := collector.Shutdown(quiescenceTimeout); err != nil {
		log.Warnf("failed to close collector endpoint: %v", err)
	}
	if runErr != nil {
		return 0, runErr
	}
	return code, nil
}

// defaultPreloadLibrary is where the install step places the interception
// library when no explicit path is configured.
const defaultPreloadLibrary = "/usr/local/lib/ccdb/libexec.so"

func buildSession(opts interceptOptions, destination string) (*collect.Session, func(), error) {
	executor, err := os.Executable()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to locate own executable: %v", err)
	}

	session := &collect.Session{
		Destination: destination,
		Executor:    executor,
		Verbose:     opts.verbose,
	}

	usePreload := opts.forcePreload
	if !opts.forceWrapper && !usePreload {
		// Preload is preferred when a library is available; otherwise fall
		// back to wrapping the compiler names.
		library := opts.library
		if library == "" {
			library = defaultPreloadLibrary
		}
		if _, statErr := os.Stat(library); statErr == nil {
			opts.library = library
			usePreload = true
		}
	}

	if usePreload {
		session.Mode = collect.ModePreload
		session.Library = opts.library
		return session, func() {}, nil
	}

	wrapperDir, err := collect.SetupWrapperDir(executor, collect.DefaultWrapperNames)
	if err != nil {
		return nil, nil, err
	}
	session.Mode = collect.ModeWrapper
	session.WrapperDir = wrapperDir
	return session, func() { os.RemoveAll(wrapperDir) }, nil
}
