package betteria

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// PageCount returns the number of pages in the PDF at path, as reported
// by Poppler's pdfinfo.
func PageCount(ctx context.Context, path string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("cannot read input PDF: %w", err)
	}

	stdout, stderr, err := runTool(ctx, "pdfinfo", path)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return 0, errors.New("poppler's 'pdfinfo' not found, install Poppler or add it to PATH")
		}
		return 0, fmt.Errorf("running pdfinfo: %w: %s", err, stderr)
	}

	return parsePageCount(stdout)
}

// parsePageCount extracts the "Pages:" field from pdfinfo output.
func parsePageCount(output string) (int, error) {
	for _, line := range strings.Split(output, "\n") {
		if !strings.HasPrefix(strings.ToLower(line), "pages:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0, fmt.Errorf("malformed page count %q in pdfinfo output", fields[1])
		}
		if n < 1 {
			return 0, fmt.Errorf("pdfinfo reported %d pages", n)
		}
		return n, nil
	}
	return 0, errors.New("could not determine page count from pdfinfo output")
}

// runTool runs an external command, returning its stdout and stderr.
// Cancelling ctx kills the process, so callers never leave a zombie
// behind on interruption.
func runTool(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil && ctx.Err() != nil {
		err = fmt.Errorf("%s interrupted: %w", name, context.Cause(ctx))
	}
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}
