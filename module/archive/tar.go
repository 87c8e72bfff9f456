package archive

import (
	"archive/tar"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// codec wraps the byte stream of a tarball.
type codec interface {
	reader(r io.Reader) (io.ReadCloser, error)
	// writer returns nil when the codec cannot compress.
	writer(w io.Writer) (io.WriteCloser, error)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type plainCodec struct{}

func (plainCodec) reader(r io.Reader) (io.ReadCloser, error) { return io.NopCloser(r), nil }
func (plainCodec) writer(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

type gzipCodec struct{}

func (gzipCodec) reader(r io.Reader) (io.ReadCloser, error) { return gzip.NewReader(r) }
func (gzipCodec) writer(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

type zstdCodec struct{}

func (zstdCodec) reader(r io.Reader) (io.ReadCloser, error) {
	d, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return d.IOReadCloser(), nil
}

func (zstdCodec) writer(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

type lz4Codec struct{}

func (lz4Codec) reader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

func (lz4Codec) writer(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

type bzip2Codec struct{}

func (bzip2Codec) reader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(bzip2.NewReader(r)), nil
}

func (bzip2Codec) writer(io.Writer) (io.WriteCloser, error) { return nil, nil }

// tarHandler handles tarballs, optionally wrapped in a compression codec.
type tarHandler struct {
	codec codec
}

func (h *tarHandler) ExtractOnly() bool {
	_, ok := h.codec.(bzip2Codec)
	return ok
}

func (h *tarHandler) Archive(ctx context.Context, src *Source, w io.Writer) error {
	cw, err := h.codec.writer(w)
	if err != nil {
		return err
	}
	if cw == nil {
		return errors.New("format is extract only")
	}

	tw := tar.NewWriter(cw)
	err = src.Walk(ctx, func(name, file string, info fs.FileInfo) error {
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = name
		if info.IsDir() {
			hdr.Name += "/"
		}
		hdr.Uid, hdr.Gid = 0, 0
		hdr.Uname, hdr.Gname = "", ""
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		return copyFrom(tw, file)
	})
	if err != nil {
		tw.Close()
		cw.Close()
		return err
	}
	if err := tw.Close(); err != nil {
		cw.Close()
		return err
	}
	return cw.Close()
}

func (h *tarHandler) Extract(ctx context.Context, srcFile string, dest *Destination) error {
	f, err := os.Open(srcFile)
	if err != nil {
		return err
	}
	defer f.Close()

	cr, err := h.codec.reader(f)
	if err != nil {
		return fmt.Errorf("open compressed stream: %w", err)
	}
	defer cr.Close()

	tr := tar.NewReader(cr)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := dest.Mkdir(hdr.Name); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := dest.WriteFile(hdr.Name, hdr.FileInfo().Mode(), hdr.ModTime, tr); err != nil {
				return err
			}
		default:
			// Links and device entries are never materialized, but a
			// hostile name still fails the extraction.
			if _, err := dest.Resolve(hdr.Name); err != nil {
				return err
			}
		}
	}
}

func (h *tarHandler) ReadEntries(ctx context.Context, srcFile string, wanted func(string) bool, fn func(string, io.Reader) error) error {
	f, err := os.Open(srcFile)
	if err != nil {
		return err
	}
	defer f.Close()

	cr, err := h.codec.reader(f)
	if err != nil {
		return fmt.Errorf("open compressed stream: %w", err)
	}
	defer cr.Close()

	tr := tar.NewReader(cr)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || !wanted(hdr.Name) {
			continue
		}
		if err := fn(hdr.Name, tr); err != nil {
			return err
		}
	}
}
