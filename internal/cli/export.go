package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sheetslicer/pkg/config"
	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/export"
	"github.com/matzehuels/sheetslicer/pkg/names"
	"github.com/matzehuels/sheetslicer/pkg/storage"
)

type exportFlags struct {
	format      string
	quality     int
	background  string
	frontSuffix string
	backSuffix  string
	noCode      bool
	skipUnnamed bool
	upload      bool
	asJSON      bool
}

// exportJSON is the --json output of an export run.
type exportJSON struct {
	export.Summary
	Uploaded []string `json:"uploaded,omitempty"`
}

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var f exportFlags

	cmd := &cobra.Command{
		Use:   "export FOLDER",
		Short: "Write one image per tile into FOLDER",
		Long: `Write one image per tile of the session's sheets into FOLDER, front tiles
first, row by row. Each file is named after its card, its text or its
position, carries a side suffix, and embeds the card details as metadata
where the format allows.

A tile that cannot be written is reported and the rest continue. Ctrl-C
stops the run; files already written stay.`,
		Example: `  sheetslicer export ./out
  sheetslicer export ./out --format png --skip-unnamed
  sheetslicer export ./out --upload`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd, args[0], f)
		},
	}

	cmd.Flags().StringVarP(&f.format, "format", "f", "", "jpeg, png, webp, bmp, gif or tiff (default from settings)")
	cmd.Flags().IntVarP(&f.quality, "quality", "q", 0, "JPEG and WebP quality 1-100 (default from settings)")
	cmd.Flags().StringVar(&f.background, "background", "", "fill for transparent pixels in JPEG and BMP, e.g. #FFFFFF")
	cmd.Flags().StringVar(&f.frontSuffix, "front-suffix", "", "front file name suffix (default from settings)")
	cmd.Flags().StringVar(&f.backSuffix, "back-suffix", "", "back file name suffix (default from settings)")
	cmd.Flags().BoolVar(&f.noCode, "no-code", false, "leave the card code out of file names")
	cmd.Flags().BoolVar(&f.skipUnnamed, "skip-unnamed", false, "skip tiles without a name")
	cmd.Flags().BoolVar(&f.upload, "upload", false, "upload written files to the configured S3 bucket")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the summary as JSON")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		formats := make([]string, len(export.Formats))
		for i, f := range export.Formats {
			formats[i] = f.String()
		}
		return formats, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// exportOptions merges the settings with the command line flags.
func exportOptions(cfg *config.Config, f exportFlags) (export.Options, error) {
	opts, err := cfg.ExportOptions()
	if err != nil {
		return opts, err
	}
	if f.format != "" {
		if opts.Format, err = export.ParseFormat(f.format); err != nil {
			return opts, err
		}
	}
	if f.quality != 0 {
		opts.Quality = f.quality
	}
	if f.background != "" {
		if opts.Background, err = config.ParseHexColor(f.background); err != nil {
			return opts, err
		}
	}
	if f.frontSuffix != "" {
		opts.FrontSuffix = f.frontSuffix
	}
	if f.backSuffix != "" {
		opts.BackSuffix = f.backSuffix
	}
	if f.noCode {
		opts.IncludeCardCode = false
	}
	if f.skipUnnamed {
		opts.SkipUnnamed = true
	}
	return opts, opts.ValidateAndSetDefaults()
}

func (c *CLI) runExport(cmd *cobra.Command, folder string, f exportFlags) error {
	ctx := cmd.Context()
	cfg := c.config()
	if f.upload && !cfg.Storage.Enabled {
		return sserrors.New(sserrors.ErrCodeUnsupported, "--upload needs [storage] enabled = true in %s", c.configPath)
	}

	opts, err := exportOptions(cfg, f)
	if err != nil {
		return err
	}
	opts.Logger = c.Logger
	pipeline, err := export.New(opts)
	if err != nil {
		return err
	}

	_, sess, err := c.loadSession(ctx)
	if err != nil {
		return err
	}
	front, back, err := sessionSheets(sess)
	if err != nil {
		return err
	}
	ns := sess.Names()

	req := export.Request{
		Folder: folder,
		Front:  export.SideJob{Image: front.Sheet.Image, Tiles: front.Layout.Tiles, Names: ns, Side: names.Front},
	}
	total := len(front.Layout.Tiles)
	if back != nil {
		req.Back = &export.SideJob{
			Image:  back.Sheet.Image,
			Tiles:  back.Layout.Tiles,
			Names:  ns,
			Side:   names.Back,
			Single: back.Single,
		}
		total += len(back.Layout.Tiles)
	}

	start := time.Now()
	results, err := pipeline.Start(ctx, req)
	if err != nil {
		return err
	}

	spinner := newSpinner(ctx, fmt.Sprintf("Exporting %d tiles...", total))
	if !f.asJSON {
		spinner.Start()
	}
	var all []export.Result
	for r := range results {
		all = append(all, r)
		spinner.Update("Exporting %d/%d %s", len(all), total, filepath.Base(r.Path))
	}
	spinner.Stop()

	summary := export.Summarize(all)
	summary.Duration = time.Since(start)

	var report storage.Report
	if f.upload && ctx.Err() == nil {
		report, err = c.upload(ctx, cfg, all, f.asJSON)
		if err != nil {
			return err
		}
	}

	if f.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(exportJSON{Summary: summary, Uploaded: report.Uploaded}); err != nil {
			return err
		}
	} else {
		printExportSummary(summary, folder, report, f.upload)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if !summary.OK() {
		return sserrors.New(sserrors.ErrCodeExportIO, "%d of %d tiles failed", summary.Failed, summary.Total())
	}
	return nil
}

func (c *CLI) upload(ctx context.Context, cfg *config.Config, results []export.Result, quiet bool) (storage.Report, error) {
	uploader, err := storage.New(ctx, cfg.Storage.Config, c.Logger)
	if err != nil {
		return storage.Report{}, err
	}
	spinner := newSpinner(ctx, "Uploading to "+uploader.Bucket()+"...")
	if !quiet {
		spinner.Start()
	}
	defer spinner.Stop()
	return uploader.Upload(ctx, results)
}

func printExportSummary(s export.Summary, folder string, report storage.Report, uploaded bool) {
	switch {
	case s.Failed > 0:
		printWarning("Exported %d of %d tiles to %s", s.Written, s.Total(), folder)
	case s.Skipped > 0:
		printSuccess("Exported %d tiles to %s (%d skipped)", s.Written, folder, s.Skipped)
	default:
		printSuccess("Exported %d tiles to %s", s.Written, folder)
	}
	fmt.Println(summaryTable(s))
	if len(s.Failures) > 0 {
		fmt.Println(failureTable(s.Failures))
	}
	if !uploaded {
		return
	}
	if len(report.Failed) > 0 {
		printWarning("Uploaded %d files, %d failed", len(report.Uploaded), len(report.Failed))
		for _, f := range report.Failed {
			printDetail("%s: %v", f.Path, f.Err)
		}
		return
	}
	printSuccess("Uploaded %d files", len(report.Uploaded))
}
