package batch

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// extract unpacks every non-manifest entry of the delivered archive flat into
// the staging directory and returns the written paths. Entry names are reduced
// to their base name, so hostile archive paths cannot escape the staging dir.
func (c *Client) extract(payload []byte) ([]string, error) {
	r, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("open result archive: %w", err)
	}

	if err := os.MkdirAll(c.stagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	var files []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		// .lst entries are provider manifests, not dataset files
		if strings.HasSuffix(strings.ToLower(f.Name), ".lst") {
			continue
		}

		outPath := filepath.Join(c.stagingDir, filepath.Base(f.Name))
		if err := extractEntry(f, outPath); err != nil {
			return nil, err
		}
		files = append(files, outPath)
	}

	return files, nil
}

func extractEntry(f *zip.File, outPath string) error {
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %s: %w", f.Name, err)
	}
	defer src.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create staged file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("write staged file %s: %w", outPath, err)
	}
	return nil
}
