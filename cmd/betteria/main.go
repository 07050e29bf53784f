package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/huangziwei/betteria"
)

var version = "0.3.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		output     string
		dpi        int
		threshold  int
		blockSize  int
		cVal       int
		adaptive   bool
		invert     bool
		deskew     bool
		quiet      bool
		verbose    bool
		jobs       string
		rasterizer string
	)

	cmd := &cobra.Command{
		Use:   "betteria [flags] <input.pdf>",
		Short: "Clean and compress a scanned PDF",
		Long: "Clean and compress a scanned PDF by whitening pages and storing them\n" +
			"as CCITT Group 4 bi-level images.",
		Args:          cobra.ExactArgs(1),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			jobsN, err := parseJobs(jobs)
			if err != nil {
				return err
			}

			opts := betteria.DefaultOptions(args[0])
			opts.Output = output
			opts.DPI = dpi
			opts.Threshold = threshold
			opts.Adaptive = adaptive
			opts.BlockSize = blockSize
			opts.C = cVal
			opts.Invert = invert
			opts.Deskew = deskew
			opts.Jobs = jobsN
			opts.Backend = rasterizer
			opts.Progress = !quiet
			opts.Logger = newLogger(verbose)

			p, err := betteria.New(opts)
			if err != nil {
				return err
			}
			return p.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "path to output PDF (default: <input-stem>-enhanced.pdf)")
	cmd.Flags().IntVar(&dpi, "dpi", 150, "DPI for rasterizing PDF pages")
	cmd.Flags().IntVar(&threshold, "threshold", 128, "global threshold value (0-255)")
	cmd.Flags().BoolVar(&adaptive, "adaptive", false, "use adaptive thresholding instead of a global threshold")
	cmd.Flags().IntVar(&blockSize, "block-size", 31, "odd-sized neighborhood for adaptive thresholding")
	cmd.Flags().IntVar(&cVal, "c-val", 15, "constant subtracted in adaptive thresholding")
	cmd.Flags().BoolVar(&invert, "invert", false, "invert pixels before thresholding (for light text on dark background)")
	cmd.Flags().BoolVar(&deskew, "deskew", false, "straighten skewed pages before thresholding")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "disable progress bars")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	cmd.Flags().StringVar(&jobs, "jobs", "auto", "parallel workers ('auto' or an integer; use 1 to disable)")
	cmd.Flags().StringVar(&rasterizer, "rasterizer", "pdftocairo", "rasterizer backend (pdftocairo, pdftoppm or mupdf)")

	cmd.AddCommand(newInfoCmd())
	return cmd
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <input.pdf>",
		Short: "Print the page count of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := betteria.PageCount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
}

// parseJobs accepts "auto", "max", "0" or a non-negative integer.
func parseJobs(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "max", "0":
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid jobs value: %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("jobs must be non-negative, got %d", n)
	}
	return n, nil
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(level).With().Timestamp().Logger()
}
