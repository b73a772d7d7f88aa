// Package zip packs generated images into a single download.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Entry is one file of an archive.
type Entry struct {
	Name     string
	MIME     string
	Data     []byte
	Modified time.Time
}

// Write streams entries into w. Empty entries are skipped, missing
// extensions are derived from MIME and repeated names get a numeric suffix.
func Write(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]int, len(entries))
	for _, e := range entries {
		if len(e.Data) == 0 {
			continue
		}
		name := entryName(e)
		if n := seen[name]; n > 0 {
			ext := path.Ext(name)
			name = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n+1, ext)
		}
		seen[entryName(e)]++

		hdr := &zip.FileHeader{Name: name, Method: zip.Store, Modified: e.Modified}
		f, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("zip: create %s: %w", name, err)
		}
		if _, err := f.Write(e.Data); err != nil {
			return fmt.Errorf("zip: write %s: %w", name, err)
		}
	}
	return zw.Close()
}

// Archive returns the archive of entries as bytes.
func Archive(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func entryName(e Entry) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(e.Name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "image"
	}
	if path.Ext(name) == "" {
		name += Extension(e.MIME)
	}
	return name
}

// Extension maps an image MIME type to a file extension, ".png" when unknown.
func Extension(mime string) string {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
