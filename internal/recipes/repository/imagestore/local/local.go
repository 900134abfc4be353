package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var ErrBadPath = errors.New("path escapes media directory")

// ImageStore writes recipe images below a directory on disk.
type ImageStore struct {
	dir string
}

func New(dir string) ImageStore {
	return ImageStore{dir: dir}
}

func (is ImageStore) Save(_ context.Context, path, _ string, body io.Reader, _ int64) (err error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return ErrBadPath
	}

	full := filepath.Join(is.dir, clean)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil { //nolint:gomnd
		return fmt.Errorf("mkdir error: %w", err)
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) //nolint:gomnd
	if err != nil {
		return fmt.Errorf("create file error: %w", err)
	}

	defer func() {
		if errC := f.Close(); errC != nil && err == nil {
			err = fmt.Errorf("close file error: %w", errC)
		}
	}()

	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("copy error: %w", err)
	}

	return nil
}

// Handler serves the stored files, so that mediaURL + path resolves when
// images live on local disk.
func (is ImageStore) Handler() http.Handler {
	return http.FileServer(http.Dir(is.dir))
}
