// Package betteria cleans and compresses scanned PDFs. Each page is
// rasterized, thresholded to pure black/white, stored as a CCITT Group 4
// TIFF, and the pages are merged back into a single compact PDF.
package betteria

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Options configures a pipeline run. See DefaultOptions for the values
// the CLI starts from.
type Options struct {
	Input  string // path to the source PDF
	Output string // destination PDF; empty means <input-stem>-enhanced.pdf

	DPI       int    // rasterization resolution
	Threshold int    // global threshold, 0-255
	Adaptive  bool   // adaptive thresholding instead of the global cutoff
	BlockSize int    // adaptive neighborhood size, odd, >= 3
	C         int    // adaptive constant
	Invert    bool   // invert before thresholding (light text on dark scans)
	Deskew    bool   // straighten pages before thresholding
	Jobs      int    // parallel workers, 0 = one per available CPU
	Backend   string // rasterizer backend name, empty = pdftocairo

	Progress bool           // show progress bars on stderr
	Logger   zerolog.Logger // defaults to a no-op logger
}

// DefaultOptions returns the options the CLI uses before flags are applied.
func DefaultOptions(input string) Options {
	return Options{
		Input:     input,
		DPI:       150,
		Threshold: 128,
		BlockSize: 31,
		C:         15,
		Logger:    zerolog.Nop(),
	}
}

// DefaultOutputPath places the output next to the input, with an
// "-enhanced" suffix on the stem.
func DefaultOutputPath(input string) string {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(filepath.Dir(input), stem+"-enhanced.pdf")
}

// Pipeline runs the conversion: page count, rasterize, binarize, pack.
type Pipeline struct {
	opts    Options
	backend Backend
	log     zerolog.Logger

	// Seams for tests.
	countPages  func(context.Context, string) (int, error)
	newDeskewer func() (*Deskewer, error)
}

// New validates opts and prepares a pipeline. All configuration errors
// are reported here, before any work happens.
func New(opts Options) (*Pipeline, error) {
	if opts.DPI <= 0 {
		return nil, fmt.Errorf("%w: DPI must be a positive integer, got %d", ErrInvalidConfig, opts.DPI)
	}
	if err := (BinarizeOptions{
		Threshold: opts.Threshold,
		Adaptive:  opts.Adaptive,
		BlockSize: opts.BlockSize,
	}).validate(); err != nil {
		return nil, err
	}
	if opts.Jobs < 0 {
		return nil, fmt.Errorf("%w: jobs must be non-negative, got %d", ErrInvalidConfig, opts.Jobs)
	}

	backend, err := BackendFor(opts.Backend)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(opts.Input); err != nil {
		return nil, fmt.Errorf("cannot read input PDF: %w", err)
	}
	if opts.Output == "" {
		opts.Output = DefaultOutputPath(opts.Input)
	}
	if info, err := os.Stat(opts.Output); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrOutputIsDirectory, opts.Output)
	}

	return &Pipeline{
		opts:        opts,
		backend:     backend,
		log:         opts.Logger,
		countPages:  PageCount,
		newDeskewer: NewDeskewer,
	}, nil
}

// Run executes the pipeline. The two temporary directories (rasterized
// pages, binarized pages) are removed on every exit path. The output
// file is written only after every stage has succeeded.
func (p *Pipeline) Run(ctx context.Context) error {
	pagesDir, err := os.MkdirTemp("", "betteria-pages-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(pagesDir)

	tiffDir, err := os.MkdirTemp("", "betteria-tiff-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tiffDir)

	total, err := p.countPages(ctx, p.opts.Input)
	if err != nil {
		return err
	}
	p.log.Info().
		Int("pages", total).
		Str("backend", p.backend.Name()).
		Int("dpi", p.opts.DPI).
		Msg("rasterizing")

	bar := newProgress(total, "Converting PDF to PNG", p.opts.Progress)
	pngs, err := rasterizePages(ctx, p.backend, p.opts.Input, pagesDir, p.opts.DPI, p.opts.Jobs, total, bar)
	bar.Finish()
	if err != nil {
		return err
	}

	tiffs, err := p.binarizeAll(ctx, pngs, tiffDir)
	if err != nil {
		return err
	}

	if err := Pack(tiffs, p.opts.Output); err != nil {
		return err
	}
	p.log.Info().Str("output", p.opts.Output).Msg("done")
	return nil
}

// binarizeAll fans the binarization step out across the worker pool and
// returns the TIFF paths in page order. Below two workers it runs
// sequentially in-process.
func (p *Pipeline) binarizeAll(ctx context.Context, pngs []string, tiffDir string) ([]string, error) {
	binOpts := BinarizeOptions{
		Threshold: p.opts.Threshold,
		Adaptive:  p.opts.Adaptive,
		BlockSize: p.opts.BlockSize,
		C:         p.opts.C,
		Invert:    p.opts.Invert,
		DPI:       p.opts.DPI,
	}

	var deskewer *Deskewer
	if p.opts.Deskew {
		var err error
		if deskewer, err = p.newDeskewer(); err != nil {
			return nil, fmt.Errorf("loading deskew model: %w", err)
		}
	}

	tiffs := make([]string, len(pngs))
	for i, png := range pngs {
		stem := strings.TrimSuffix(filepath.Base(png), filepath.Ext(png))
		tiffs[i] = filepath.Join(tiffDir, stem+".tiff")
	}

	workers := workerCount(p.opts.Jobs, len(pngs))
	p.log.Info().Int("workers", workers).Int("pages", len(pngs)).Msg("binarizing")
	bar := newProgress(len(pngs), "Whitening images", p.opts.Progress)
	defer bar.Finish()

	if workers < 2 {
		for i, png := range pngs {
			if err := ctx.Err(); err != nil {
				return nil, context.Cause(ctx)
			}
			if err := BinarizeFile(png, tiffs[i], binOpts, deskewer); err != nil {
				return nil, fmt.Errorf("page %d: %w", i+1, err)
			}
			bar.Add(1)
		}
		return tiffs, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, png := range pngs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return context.Cause(gctx)
			}
			if err := BinarizeFile(png, tiffs[i], binOpts, deskewer); err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			bar.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tiffs, nil
}
