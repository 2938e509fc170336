// Package archive bundles tool outputs into a single zip download
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zip"
)

type File struct {
	Name string
	Data []byte
}

// Bundle writes files into a zip in the given order. Already-compressed payloads
// (JPEG, PDF) are stored rather than deflated again.
func Bundle(files []File) ([]byte, error) {
	if len(files) == 0 {
		return nil, errors.New("nothing to bundle")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	now := time.Now()

	seen := make(map[string]int, len(files))
	for _, f := range files {
		name := uniqueName(seen, f.Name)
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Store,
			Modified: now,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add %q to zip: %w", name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, fmt.Errorf("failed to write %q to zip: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize zip: %w", err)
	}
	return buf.Bytes(), nil
}

// uniqueName suffixes repeated names: a.jpg, a(1).jpg, a(2).jpg. Generated names are
// recorded too, so a later "a(1).jpg" from the input never collides with them.
func uniqueName(seen map[string]int, name string) string {
	n, dup := seen[name]
	if !dup {
		seen[name] = 1
		return name
	}

	base, ext := name, ""
	for i := len(name) - 1; i > 0; i-- {
		if name[i] == '.' {
			base, ext = name[:i], name[i:]
			break
		}
	}
	for {
		candidate := fmt.Sprintf("%s(%d)%s", base, n, ext)
		n++
		if _, taken := seen[candidate]; !taken {
			seen[name] = n
			seen[candidate] = 1
			return candidate
		}
	}
}
