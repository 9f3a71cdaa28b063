// internal/trajectory/open.go
package trajectory

import (
	"compress/gzip"
	"io"
	"os"
	"strings"
)

// stackedCloser closes the gzip layer before the file under it.
type stackedCloser struct {
	io.Reader
	layers []io.Closer
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.layers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// open returns a reader for path; "-" is stdin. Gzip is detected by its
// magic bytes or a .gz suffix.
func open(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		return io.NopCloser(stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var magic [2]byte
	n, _ := io.ReadFull(fh, magic[:])
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		_ = fh.Close()
		return nil, err
	}
	if (n == 2 && magic[0] == 0x1f && magic[1] == 0x8b) || strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, err
		}
		return &stackedCloser{Reader: gz, layers: []io.Closer{gz, fh}}, nil
	}
	return fh, nil
}
