package main

import (
	"github.com/spf13/cobra"

	"github.com/yourorg/pdf-toolkit/pkg/docengine"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
	"github.com/yourorg/pdf-toolkit/pkg/pagespec"
	"github.com/yourorg/pdf-toolkit/pkg/processor"
)

// options are the flags shared by every tool command.
type options struct {
	output  string
	strict  bool
	dryRun  bool
	verbose bool
	params  processor.Params
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "pdftool",
		Short: "Merge, split, rotate, compress and protect PDF files",
		Long: `pdftool runs the PDF toolkit locally.

Page selections are 1-based: "1,3,5-8". Invalid segments are skipped
unless --strict is given.

Examples:
  pdftool merge a.pdf b.pdf -o merged.pdf
  pdftool split report.pdf --mode ranges --pages 1-3,4-6
  pdftool rotate scan.pdf --angle 90 --pages 2
  pdftool compress big.pdf --level high`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.output, "output", "o", "", "output file, or directory for several outputs (default: current directory)")
	pf.BoolVar(&opts.strict, "strict", false, "reject page selections with invalid segments")
	pf.BoolVar(&opts.dryRun, "dry-run", false, "plan the outputs without writing PDF files")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	for _, spec := range toolCommands {
		root.AddCommand(newToolCmd(spec, opts))
	}
	root.AddCommand(newSizeCmd())
	return root
}

func (o *options) processor() (*processor.Processor, error) {
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	logger, err := logging.NewLogger(level, "console")
	if err != nil {
		return nil, err
	}

	var lib docengine.Library = docengine.NewPDFLibrary(logger)
	if o.dryRun {
		lib = docengine.NewMemoryLibrary()
	}

	policy := pagespec.Lenient
	if o.strict {
		policy = pagespec.Strict
	}
	return processor.New(lib, logger,
		processor.WithPageSpecPolicy(policy),
		processor.WithLimits(processor.Limits{}),
	), nil
}
