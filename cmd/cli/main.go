// Package main provides the offline watermark CLI.
//
// Run with: go run ./cmd/cli render photo.jpg out.png --logos ./assets/logos
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	zlog.InitConsole()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &renderOptions{}

	root := &cobra.Command{
		Use:          "exifframe",
		Short:        "Frame photos with a camera watermark",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return zlog.SetLevel(opts.logLevel)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.logoDir, "logos", "./assets/logos", "directory with <key>.png logo files")
	pf.StringVar(&opts.fontDir, "fonts", "", "directory with TTF/OTF fonts (built-in faces when empty)")
	pf.StringVar(&opts.variant, "variant", "strip", "watermark variant: strip or overlay")
	pf.Float64Var(&opts.multiplier, "multiplier", 0, "output scale over the layout size (0 keeps native resolution)")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level")
	pf.StringVar(&opts.overrides.Make, "make", "", "camera make, replaces EXIF")
	pf.StringVar(&opts.overrides.Model, "model", "", "camera model, replaces EXIF")
	pf.StringVar(&opts.overrides.LensModel, "lens", "", "lens model, replaces EXIF")
	pf.StringVar(&opts.overrides.FontFamily, "font-family", "", "watermark font family")
	pf.Float64Var(&opts.overrides.BackgroundBlurStrength, "blur", 0, "overlay background blur strength")
	pf.BoolVar(&opts.overrides.HiddenBottomInfo, "hide-bottom", false, "draw overlay info on the photo instead of a strip")

	root.AddCommand(renderCmd(opts), batchCmd(opts), logosCmd())
	return root
}

func renderCmd(opts *renderOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "render <input> <output>",
		Short: "Render one photo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.renderer()
			if err != nil {
				return err
			}
			return renderFile(cmd.Context(), r, opts, args[0], args[1])
		},
	}
}

func batchCmd(opts *renderOptions) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "batch <input-dir> <output-dir>",
		Short: "Render every JPEG/PNG/GIF/TIFF in a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.renderer()
			if err != nil {
				return err
			}
			return renderDir(cmd.Context(), r, opts, args[0], args[1], concurrency)
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "renders in flight")
	return cmd
}

func logosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logos",
		Short: "List supported camera makes",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printLogos(cmd.OutOrStdout())
		},
	}
}
