package main

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rcr/ccdb/collect"
)

const binaryName = "ccdb"

func main() {
	// Invoked through a compiler-name symlink, this binary is the wrapper
	// executor, not the CLI.
	if filepath.Base(os.Args[0]) != binaryName && os.Getenv(collect.KeyDestination) != "" {
		configureLogging(os.Getenv(collect.KeyVerbose) != "")
		os.Exit(collect.RunWrapper(os.Args, os.Environ()))
	}

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		outputPath   string
		configPath   string
		appendOutput bool
		verbose      bool
		forcePreload bool
		forceWrapper bool
		library      string
	)

	root := &cobra.Command{
		Use:   binaryName + " [flags] -- <build command>",
		Short: "generates a compilation database by observing a build",
		Long: "Supervises the given build command, captures every executed\n" +
			"command, and writes a compilation database for the compiler calls\n" +
			"among them.",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(verbose)

			eventsPath, cleanup, err := temporaryEventsPath()
			if err != nil {
				return err
			}
			defer cleanup()

			code, err := runIntercept(interceptOptions{
				output:       eventsPath,
				forcePreload: forcePreload,
				forceWrapper: forceWrapper,
				library:      library,
				verbose:      verbose,
			}, args)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}

			if err := runCitnames(citnamesOptions{
				input:        eventsPath,
				output:       outputPath,
				configPath:   configPath,
				appendOutput: appendOutput,
			}); err != nil {
				return err
			}

			os.Exit(code)
			return nil
		},
	}

	root.Flags().StringVar(&outputPath, "output", "compile_commands.json", "path of the compilation database")
	root.Flags().StringVar(&configPath, "config", "", "path of the configuration file")
	root.Flags().BoolVar(&appendOutput, "append", false, "merge with an existing compilation database")
	root.Flags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	root.Flags().BoolVar(&forcePreload, "force-preload", false, "force the preload interception mode")
	root.Flags().BoolVar(&forceWrapper, "force-wrapper", false, "force the wrapper interception mode")
	root.Flags().StringVar(&library, "library", "", "path of the preload interception library")
	root.MarkFlagsMutuallyExclusive("force-preload", "force-wrapper")

	root.AddCommand(newInterceptCommand())
	root.AddCommand(newCitnamesCommand())
	root.AddCommand(newWrapperCommand())
	return root
}

func newWrapperCommand() *cobra.Command {
	return &cobra.Command{
		Use:    "wrapper",
		Short:  "acts as the reporting stand-in for a compiler",
		Hidden: true,
		Args:   cobra.ArbitraryArgs,
		Run: func(cmd *cobra.Command, args []string) {
			configureLogging(os.Getenv(collect.KeyVerbose) != "")
			os.Exit(collect.RunWrapper(args, os.Environ()))
		},
	}
}

func temporaryEventsPath() (string, func(), error) {
	dir, err := os.MkdirTemp("", "ccdb-events-")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary directory: %v", err)
	}
	return filepath.Join(dir, "events.db"), func() { os.RemoveAll(dir) }, nil
}

func configureLogging(verbose bool) {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: false, FullTimestamp: true})
	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}
}
