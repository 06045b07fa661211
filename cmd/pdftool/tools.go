package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourorg/pdf-toolkit/pkg/filesize"
	"github.com/yourorg/pdf-toolkit/pkg/processor"
)

// Flags a tool command may take besides the shared ones.
const (
	flagPages = 1 << iota
	flagAngle
	flagMode
	flagLevel
	flagPassword
	flagWatermark
)

type toolCommand struct {
	use   string
	tool  string
	short string
	flags int
}

var toolCommands = []toolCommand{
	{"merge <file>...", processor.ToolMerge, "Combine PDFs in the order given", flagLevel},
	{"split <file>", processor.ToolSplit, "Split a PDF into pages or ranges", flagPages | flagMode},
	{"rotate <file>", processor.ToolRotate, "Rotate all or selected pages", flagPages | flagAngle},
	{"delete <file>", processor.ToolDeletePages, "Delete selected pages", flagPages},
	{"extract <file>", processor.ToolExtractPages, "Copy selected pages into a new PDF", flagPages},
	{"compress <file>", processor.ToolCompress, "Reduce the file size", flagLevel},
	{"protect <file>", processor.ToolProtect, "Encrypt a PDF with a password", flagPassword},
	{"unlock <file>", processor.ToolUnlock, "Remove the password from a PDF", flagPassword},
	{"watermark <file>", processor.ToolWatermark, "Stamp a text watermark on every page", flagPages | flagWatermark},
	{"images <image>...", processor.ToolImagesToPDF, "Turn JPEG and PNG images into a PDF", 0},
	{"info <file>...", processor.ToolMetadata, "Print document metadata as JSON", 0},
	{"text <file>", processor.ToolOCR, "Extract the text layer", 0},
}

func newToolCmd(spec toolCommand, opts *options) *cobra.Command {
	var (
		opacity  float64
		rotation float64
	)
	cmd := &cobra.Command{
		Use:   spec.use,
		Short: spec.short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("opacity") {
				opts.params.Opacity = &opacity
			}
			if cmd.Flags().Changed("rotation") {
				opts.params.Rotation = &rotation
			}
			return runTool(cmd, spec.tool, args, opts)
		},
	}

	f := cmd.Flags()
	p := &opts.params
	if spec.flags&flagPages != 0 {
		f.StringVar(&p.Pages, "pages", "", `page selection, e.g. "1,3,5-8"`)
	}
	if spec.flags&flagAngle != 0 {
		f.IntVar(&p.Angle, "angle", 90, "rotation angle: 90, 180 or 270")
	}
	if spec.flags&flagMode != 0 {
		f.StringVar(&p.Mode, "mode", "each", "split mode: each, pages or ranges")
	}
	if spec.flags&flagLevel != 0 {
		f.StringVar(&p.Level, "level", "", "compression level: low, medium or high")
	}
	if spec.flags&flagPassword != 0 {
		f.StringVar(&p.Password, "password", "", "document password")
	}
	if spec.tool == processor.ToolProtect {
		f.StringVar(&p.OwnerPassword, "owner-password", "", "owner password (default: the user password)")
		f.StringSliceVar(&p.Permissions, "allow", nil, "permissions to keep: print, modify, copy, annotate")
	}
	if spec.flags&flagWatermark != 0 {
		f.StringVar(&p.Text, "text", "", "watermark text")
		f.IntVar(&p.FontSize, "font-size", 0, "font size in points (default 36)")
		f.Float64Var(&opacity, "opacity", 0.3, "opacity between 0 and 1")
		f.Float64Var(&rotation, "rotation", 45, "text rotation in degrees")
		f.StringVar(&p.Position, "position", "", "center, top-left, top-right, bottom-left or bottom-right")
		f.StringVar(&p.Color, "color", "", `text color, e.g. "#808080"`)
	}
	return cmd
}

func runTool(cmd *cobra.Command, tool string, args []string, opts *options) error {
	files := make([]processor.InputFile, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, processor.InputFile{
			Name:        filepath.Base(path),
			ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
			Data:        data,
		})
	}

	proc, err := opts.processor()
	if err != nil {
		return err
	}
	res, err := proc.Run(cmd.Context(), processor.Request{Tool: tool, Files: files, Params: opts.params, Source: "cli"})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, w := range res.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}

	if tool == processor.ToolMetadata {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Metadata)
	}

	for _, f := range res.Files {
		path := outputPath(opts.output, f.Name, len(res.Files))
		if opts.dryRun {
			fmt.Fprintf(out, "%s (%s)\n", path, filesize.Format(f.Size()))
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (%s)\n", path, filesize.Format(f.Size()))
	}

	if res.OriginalSize > 0 && tool == processor.ToolCompress {
		fmt.Fprintf(out, "%s -> %s (%.1f%% smaller)\n",
			filesize.Format(res.OriginalSize), filesize.Format(res.ResultSize), res.Reduction)
	}
	return nil
}

// outputPath places name under output. A single output may be renamed by
// giving a file path with an extension.
func outputPath(output, name string, count int) string {
	if output == "" {
		return name
	}
	if count == 1 && filepath.Ext(output) != "" {
		if st, err := os.Stat(output); err != nil || !st.IsDir() {
			return output
		}
	}
	return filepath.Join(output, name)
}

func newSizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "size <bytes|file>...",
		Short: "Print byte counts or file sizes in human units",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				n, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					st, serr := os.Stat(arg)
					if serr != nil {
						return fmt.Errorf("%s is neither a number nor a file", arg)
					}
					n = st.Size()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", arg, filesize.Format(n))
			}
			return nil
		},
	}
}
