package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/zhyee/zipstream"
)

// zipHandler handles zip and the Java archive formats built on it.
type zipHandler struct{}

func (zipHandler) Archive(ctx context.Context, src *Source, w io.Writer) error {
	zw := zip.NewWriter(w)
	err := src.Walk(ctx, func(name, file string, info fs.FileInfo) error {
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		if info.IsDir() {
			hdr.Name = name + "/"
			hdr.Method = zip.Store
			_, err := zw.CreateHeader(hdr)
			return err
		}
		hdr.Name = name
		hdr.Method = zip.Deflate

		entry, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		return copyFrom(entry, file)
	})
	if err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func (zipHandler) Extract(ctx context.Context, srcFile string, dest *Destination) error {
	file, err := os.Open(srcFile)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	// An insecure entry name comes back with a usable reader; the
	// destination rejects those names itself.
	zr, err := zip.NewReader(file, info.Size())
	if zr == nil {
		return fmt.Errorf("open zip: %w", err)
	}

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		mode := f.Mode()
		switch {
		case strings.HasSuffix(f.Name, "/") || mode.IsDir():
			if err := dest.Mkdir(f.Name); err != nil {
				return err
			}
		case mode.Type() != 0:
			if _, err := dest.Resolve(f.Name); err != nil {
				return err
			}
		default:
			if err := extractZipEntry(f, dest); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadEntries streams the local file headers, so only the entries wanted
// are inflated.
func (zipHandler) ReadEntries(ctx context.Context, srcFile string, wanted func(string) bool, fn func(string, io.Reader) error) error {
	f, err := os.Open(srcFile)
	if err != nil {
		return err
	}
	defer f.Close()

	zr := zipstream.NewReader(f)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := zr.GetNextEntry()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read zip entry: %w", err)
		}
		if strings.HasSuffix(entry.Name, "/") || !wanted(entry.Name) {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("open entry %s: %w", entry.Name, err)
		}
		err = fn(entry.Name, rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
}

func extractZipEntry(f *zip.File, dest *Destination) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()
	return dest.WriteFile(f.Name, f.Mode(), f.Modified, rc)
}

func copyFrom(w io.Writer, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
