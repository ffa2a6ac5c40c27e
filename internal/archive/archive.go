// Package archive packs raw probe artifacts into a zstd-compressed tar so
// long-running studies do not accumulate thousands of loose files.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Summary reports what a Pack call did.
type Summary struct {
	Path    string
	Files   int
	Bytes   int64
	Pruned  int
	Skipped int
}

// Pack writes the body and meta files for the given uids from rawDir into a
// .tar.zst at outPath. Missing artifacts are skipped, not fatal. With prune
// set, successfully archived files are removed after the archive is closed.
func Pack(rawDir, outPath string, uids []string, prune bool) (*Summary, error) {
	if len(uids) == 0 {
		return nil, fmt.Errorf("archive: nothing to pack")
	}

	out, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("archive: create %s: %w", outPath, err)
	}

	zw, err := zstd.NewWriter(out)
	if err != nil {
		out.Close() //nolint:errcheck
		return nil, fmt.Errorf("archive: zstd writer: %w", err)
	}
	tw := tar.NewWriter(zw)

	sum := &Summary{Path: outPath}
	var archived []string

	for _, uid := range uids {
		for _, name := range []string{uid + "_body.json", uid + "_meta.yaml"} {
			src := filepath.Join(rawDir, name)
			n, err := addFile(tw, src, name)
			if os.IsNotExist(err) {
				sum.Skipped++
				continue
			}
			if err != nil {
				tw.Close() //nolint:errcheck
				zw.Close() //nolint:errcheck
				out.Close() //nolint:errcheck
				return nil, err
			}
			sum.Files++
			sum.Bytes += n
			archived = append(archived, src)
		}
	}

	if err := tw.Close(); err != nil {
		zw.Close() //nolint:errcheck
		out.Close() //nolint:errcheck
		return nil, fmt.Errorf("archive: close tar: %w", err)
	}
	if err := zw.Close(); err != nil {
		out.Close() //nolint:errcheck
		return nil, fmt.Errorf("archive: close zstd: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("archive: close %s: %w", outPath, err)
	}

	if prune {
		for _, src := range archived {
			if err := os.Remove(src); err == nil {
				sum.Pruned++
			}
		}
	}
	return sum, nil
}

// List returns the entry names inside a .tar.zst archive.
func List(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("archive: zstd reader: %w", err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("archive: read %s: %w", path, err)
		}
		names = append(names, hdr.Name)
	}
	return names, nil
}

// DefaultPath returns a timestamped archive path inside dir.
func DefaultPath(dir string) string {
	ts := time.Now().UTC().Format("20060102T150405Z")
	return filepath.Join(dir, fmt.Sprintf("raw-%s.tar.zst", ts))
}

func addFile(tw *tar.Writer, src, name string) (int64, error) {
	f, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer f.Close() //nolint:errcheck

	st, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("archive: stat %s: %w", src, err)
	}

	hdr := &tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    st.Size(),
		ModTime: st.ModTime(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return 0, fmt.Errorf("archive: write header %s: %w", name, err)
	}
	n, err := io.Copy(tw, f)
	if err != nil {
		return 0, fmt.Errorf("archive: write %s: %w", name, err)
	}
	return n, nil
}
