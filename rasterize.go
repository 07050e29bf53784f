package betteria

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/sync/errgroup"
)

// Backend renders PDF pages to PNG files named <prefix>-<page>.png.
// first and last select a 1-based page range; first == 0 renders the
// whole document. Implementations are interchangeable so the pipeline
// never cares which rasterizer is behind the call.
type Backend interface {
	Name() string
	Render(ctx context.Context, source, prefix string, dpi, first, last int) error
}

// BackendFor resolves a backend by name: "pdftocairo" (default),
// "pdftoppm", or "mupdf".
func BackendFor(name string) (Backend, error) {
	switch name {
	case "", "pdftocairo":
		return popplerBackend{tool: "pdftocairo"}, nil
	case "pdftoppm":
		return popplerBackend{tool: "pdftoppm"}, nil
	case "mupdf":
		return mupdfBackend{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported rasterizer backend %q", ErrInvalidConfig, name)
	}
}

// popplerBackend shells out to one of Poppler's rasterizer tools.
type popplerBackend struct {
	tool string
}

func (b popplerBackend) Name() string { return b.tool }

func (b popplerBackend) Render(ctx context.Context, source, prefix string, dpi, first, last int) error {
	args := []string{"-png", "-r", strconv.Itoa(dpi)}
	if first > 0 {
		args = append(args, "-f", strconv.Itoa(first), "-l", strconv.Itoa(last))
	}
	args = append(args, source, prefix)

	_, stderr, err := runTool(ctx, b.tool, args...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("poppler's '%s' not found, install Poppler or add it to PATH", b.tool)
		}
		if stderr != "" {
			return fmt.Errorf("running %s: %w: %s", b.tool, err, stderr)
		}
		return fmt.Errorf("running %s: %w", b.tool, err)
	}
	return nil
}

// mupdfBackend renders in-process through MuPDF. A fresh document handle
// is opened per call because go-fitz handles are not safe for concurrent
// use, and per-page calls run on separate workers.
type mupdfBackend struct{}

func (mupdfBackend) Name() string { return "mupdf" }

func (mupdfBackend) Render(ctx context.Context, source, prefix string, dpi, first, last int) error {
	doc, err := fitz.New(source)
	if err != nil {
		return fmt.Errorf("opening %s with mupdf: %w", source, err)
	}
	defer doc.Close()

	total := doc.NumPage()
	if first == 0 {
		first, last = 1, total
	}
	if last > total {
		last = total
	}
	digits := len(strconv.Itoa(total))

	for page := first; page <= last; page++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("mupdf rendering interrupted: %w", context.Cause(ctx))
		}
		img, err := doc.ImageDPI(page-1, float64(dpi))
		if err != nil {
			return fmt.Errorf("mupdf rendering page %d: %w", page, err)
		}
		out := fmt.Sprintf("%s-%0*d.png", prefix, digits, page)
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		err = png.Encode(f, img)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("writing page %d: %w", page, err)
		}
	}
	return nil
}

// workerCount decides fan-out width: the requested value, or the number
// of available CPUs when requested <= 0, clamped to the page count and
// never below 1.
func workerCount(requested, pages int) int {
	n := requested
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n > pages {
		n = pages
	}
	if n < 1 {
		n = 1
	}
	return n
}

// pageIndex recovers the page number embedded in a rasterized filename,
// e.g. "page-007.png" -> 7. Returns -1 when no digits are found.
func pageIndex(path string) int {
	stem := filepath.Base(path)
	stem = stem[:len(stem)-len(filepath.Ext(stem))]
	end := len(stem)
	for end > 0 && stem[end-1] >= '0' && stem[end-1] <= '9' {
		end--
	}
	if end == len(stem) {
		return -1
	}
	n, err := strconv.Atoi(stem[end:])
	if err != nil {
		return -1
	}
	return n
}

// rasterizePages renders every page of source into dir and returns the
// produced PNG paths in document order. With one worker the backend is
// invoked once for the whole document; otherwise one invocation per page
// is fanned out across the pool and the first failure cancels the rest.
func rasterizePages(ctx context.Context, backend Backend, source, dir string, dpi, jobs, pages int, bar *progress) ([]string, error) {
	prefix := filepath.Join(dir, "page")
	workers := workerCount(jobs, pages)

	if workers <= 1 {
		if err := backend.Render(ctx, source, prefix, dpi, 0, 0); err != nil {
			return nil, err
		}
		bar.Add(pages)
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for page := 1; page <= pages; page++ {
			g.Go(func() error {
				if err := backend.Render(gctx, source, prefix, dpi, page, page); err != nil {
					return fmt.Errorf("page %d: %w", page, err)
				}
				bar.Add(1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return collectPageImages(dir, pages)
}

// collectPageImages gathers the rasterized PNGs and checks that their
// recovered page indices are exactly 1..pages.
func collectPageImages(dir string, pages int) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, err
	}

	byIndex := make(map[int]string, len(matches))
	for _, m := range matches {
		idx := pageIndex(m)
		if idx < 0 {
			return nil, fmt.Errorf("%w: cannot recover page number from %s", ErrPageCountMismatch, m)
		}
		if prev, ok := byIndex[idx]; ok {
			return nil, fmt.Errorf("%w: duplicate page %d (%s and %s)", ErrPageCountMismatch, idx, prev, m)
		}
		byIndex[idx] = m
	}

	if len(byIndex) != pages {
		return nil, fmt.Errorf("%w: expected %d page images but found %d in %s", ErrPageCountMismatch, pages, len(byIndex), dir)
	}

	paths := make([]string, 0, pages)
	for page := 1; page <= pages; page++ {
		p, ok := byIndex[page]
		if !ok {
			return nil, fmt.Errorf("%w: page %d missing from %s", ErrPageCountMismatch, page, dir)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
