package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/harness/depextract/util/common"
	"github.com/pterm/pterm"
)

// BarWriter advances a progress bar by the number of bytes written to it.
type BarWriter struct {
	bar *pterm.ProgressbarPrinter
}

func (w *BarWriter) Write(p []byte) (int, error) {
	n := len(p)
	w.bar.Add(n)
	return n, nil
}

type progressReadCloser struct {
	io.Reader
	closeUnderlying io.Closer
	bar             *pterm.ProgressbarPrinter
}

func (p *progressReadCloser) Close() error {
	p.bar.Stop()

	if p.closeUnderlying != nil {
		return p.closeUnderlying.Close()
	}
	return nil
}

// ReadCloser returns an io.ReadCloser that copies every byte read into a
// progress bar titled with name and the expected size. Closing it stops the
// bar and closes r if r is an io.Closer.
func ReadCloser(contentLength int64, r io.Reader, name string) io.ReadCloser {
	title := name
	if contentLength > 0 {
		title = fmt.Sprintf("%s (%s)", name, common.GetSize(contentLength))
	}
	bar := pterm.DefaultProgressbar.
		WithTitle(title).
		WithWriter(os.Stderr).
		WithRemoveWhenDone(true)

	if contentLength > 0 {
		bar = bar.WithTotal(int(contentLength))
	}

	pb, _ := bar.Start()

	var closer io.Closer
	if c, ok := r.(io.Closer); ok {
		closer = c
	}

	return &progressReadCloser{
		Reader:          io.TeeReader(r, &BarWriter{pb}),
		closeUnderlying: closer,
		bar:             pb,
	}
}
