package main

import (
	"io"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

// flagOptions are the command line values that override the environment
type flagOptions struct {
	output        string
	symbolCache   bool
	force         bool
	verbose       bool
	workers       int
	symbolServer  string
	licenseURL    string
	acceptLicense bool
	metricsFile   string
}

// streams are the process standard streams, replaceable in tests
type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func newRootCmd(std streams, exitCode *int) *cobra.Command {
	opts := &flagOptions{}

	cmd := &cobra.Command{
		Use:   "massdownloader [flags] <binary>...",
		Short: "Download the PDBs and source files of .NET binaries",
		Long: `massdownloader reads the debug directory of every binary given, downloads
the matching PDB from the symbol server and then every source file the PDB
references.

Examples:
  # Fill a debugger symbol cache
  massdownloader -s -o ~/.symbols System.Private.CoreLib.dll System.Linq.dll

  # Download sources next to their original build paths
  massdownloader -o ./sources -v MyApp.dll`,
		Version:       version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfiguration(cmd, opts)
			if err != nil {
				return err
			}

			deps, err := initializeDependencies(cfg, std)
			if err != nil {
				return err
			}

			app, err := buildApplication(cfg, deps)
			if err != nil {
				return err
			}

			*exitCode = startApplication(cmd.Context(), cfg, app, args)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "Directory PDBs and sources are written to")
	flags.BoolVarP(&opts.symbolCache, "symbol-cache", "s", false, "Lay files out as a debugger symbol cache")
	flags.BoolVarP(&opts.force, "force", "f", false, "Download even when the PDB is already cached")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Print every source file downloaded")
	flags.IntVar(&opts.workers, "workers", 1, "Number of binaries processed in parallel")
	flags.StringVar(&opts.symbolServer, "symbol-server", "", "Symbol server URL")
	flags.StringVar(&opts.licenseURL, "license-url", "", "License shown before the first source download")
	flags.BoolVar(&opts.acceptLicense, "accept-license", false, "Accept the source license without prompting")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write run metrics in Prometheus text format to this file")

	return cmd
}
