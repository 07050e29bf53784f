package betteria

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Pack merges the ordered page images into a single PDF at output, one
// image per page. The document is assembled fully in memory and written
// only on success, so a failed run never leaves a partial output file.
func Pack(paths []string, output string) error {
	if len(paths) == 0 {
		return fmt.Errorf("%w: no page images supplied, cannot build PDF", ErrNoPages)
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return fmt.Errorf("%w: %s", ErrOutputIsDirectory, output)
	}

	images := make([]io.Reader, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		images = append(images, f)
	}

	importConfig := pdfcpu.DefaultImportConfig()
	importConfig.Scale = 1
	importConfig.Pos = types.Center

	buf := &bytes.Buffer{}
	if err := pdfapi.ImportImages(nil, buf, images, importConfig, nil); err != nil {
		return fmt.Errorf("building PDF: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return err
	}
	return os.WriteFile(output, buf.Bytes(), 0644)
}
