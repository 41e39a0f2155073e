package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/rcr/ccdb/config"
	"github.com/rcr/ccdb/events"
	"github.com/rcr/ccdb/output"
	"github.com/rcr/ccdb/semantic"
)

type citnamesOptions struct {
	input        string
	output       string
	configPath   string
	appendOutput bool
	runChecks    bool
	verbose      bool
}

func newCitnamesCommand() *cobra.Command {
	var opts citnamesOptions

	cmd := &cobra.Command{
		Use:           "citnames --input <path> --output <path> [flags]",
		Short:         "turns an event log into a compilation database",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(opts.verbose)
			return runCitnames(opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "path of the event log (required)")
	cmd.Flags().StringVar(&opts.output, "output", "compile_commands.json", "path of the compilation database")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "path of the configuration file")
	cmd.Flags().BoolVar(&opts.appendOutput, "append", false, "merge with an existing compilation database")
	cmd.Flags().BoolVar(&opts.runChecks, "run-checks", false, "only keep entries whose source file exists")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "enable debug logging")
	cmd.MarkFlagRequired("input")
	return cmd
}

func runCitnames(opts citnamesOptions) error {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.SeedFromEnvironment()

	if opts.runChecks {
		cfg.ContentFilter.IncludeOnlyExistingSources = true
		if err := absolutizeFilterPaths(&cfg.ContentFilter); err != nil {
			return err
		}
	}

	reader, err := events.NewReader(opts.input)
	if err != nil {
		return err
	}
	defer reader.Close()

	runs, err := events.Resolve(reader)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	recognizer, err := semantic.NewRecognizer(cfg, fs)
	if err != nil {
		return err
	}

	entries := recognizer.Entries(runs)
	entries = output.NewFilter(fs, cfg.ContentFilter).Apply(entries)

	var prior []output.Entry
	if opts.appendOutput {
		if exists, _ := afero.Exists(fs, opts.output); exists {
			prior, err = output.Read(fs, opts.output)
			if err != nil {
				return err
			}
		}
	}

	merged := output.Merge(prior, entries)
	return output.Write(fs, opts.output, merged, cfg.OutputFormat)
}

func absolutizeFilterPaths(filter *config.ContentFilter) error {
	workingDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to read working directory: %v", err)
	}
	for i, path := range filter.IncludePaths {
		if !filepath.IsAbs(path) {
			filter.IncludePaths[i] = filepath.Join(workingDir, path)
		}
	}
	for i, path := range filter.ExcludePaths {
		if !filepath.IsAbs(path) {
			filter.ExcludePaths[i] = filepath.Join(workingDir, path)
		}
	}
	return nil
}
