package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fourbar/fourbar/pkg/layout"
	"github.com/fourbar/fourbar/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output     string   // output file, "-" for stdout, or base path for several formats
	formats    []string // html (default), json, svg
	template   bool     // render in edit mode with controls and palette
	standalone bool     // wrap html in a complete document
	detailed   bool     // list widgets per cell in the svg preview
	noCache    bool     // disable the render cache
	refresh    bool     // ignore cached renders
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{standalone: true}

	cmd := &cobra.Command{
		Use:   "render [layout.json]",
		Short: "Render a layout file to HTML, JSON or an SVG preview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			if opts.output == "-" && len(opts.formats) != 1 {
				return fmt.Errorf("--output - needs exactly one format")
			}
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): html (default), json, svg (comma-separated)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format), base path (several), or - for stdout")
	cmd.Flags().BoolVar(&opts.template, "template", false, "render in edit mode with row controls and palette")
	cmd.Flags().BoolVar(&opts.standalone, "standalone", opts.standalone, "wrap HTML in a complete document")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "list widgets per cell in the SVG preview")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached renders")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, path string, opts renderOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	l, err := layout.ReadFile(path)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Rendering "+filepath.Base(path)+"...")
	spinner.Start()
	result, err := runner.Process(ctx, &l, pipeline.Options{
		CommunityID: l.CommunityID,
		Template:    opts.template,
		Formats:     opts.formats,
		Standalone:  opts.standalone,
		Detailed:    opts.detailed,
		Refresh:     opts.refresh,
		Logger:      logger,
	})
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	for _, w := range result.Warnings {
		printWarning("%v", w)
	}

	if opts.output == "-" {
		_, err := os.Stdout.Write(result.Artifacts[opts.formats[0]])
		return err
	}

	paths := outputPaths(path, opts.output, opts.formats)
	for _, format := range opts.formats {
		if err := os.WriteFile(paths[format], result.Artifacts[format], 0644); err != nil {
			return fmt.Errorf("write %s: %w", paths[format], err)
		}
	}

	printSuccess("Rendered %s", filepath.Base(path))
	for _, format := range opts.formats {
		printFile(paths[format])
	}
	printStats(result.Stats.Placed, result.Stats.Skipped, result.CacheInfo.RenderHit)
	prog.done("Render complete")
	return nil
}

// outputPaths picks a file per format. A single format with an explicit
// output writes there; otherwise output (or the input) minus its extension
// is the base path. An artifact never overwrites the input file.
func outputPaths(input, output string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if output != "" && len(formats) == 1 {
		paths[formats[0]] = output
		return paths
	}

	base := output
	if base == "" {
		base = input
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	for _, f := range formats {
		p := base + "." + f
		if p == input {
			p = base + ".summary." + f
		}
		paths[f] = p
	}
	return paths
}
