package uploader

import (
	"fmt"
	"os"
)

// Load reads a firmware image from path. A missing file surfaces the
// wrapped fs.ErrNotExist; an empty file returns ErrEmptyImage. The
// returned bytes are owned by the caller and treated as read-only by the
// session.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read firmware: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyImage)
	}
	return data, nil
}
