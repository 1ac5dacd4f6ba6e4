package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// DefaultChunkSize is the range size used when callers pass zero.
const DefaultChunkSize int64 = 1 << 20

// Download errors.
var (
	ErrNoDownloadURL      = errors.New("gdrive: file has no download URL")
	ErrIncompleteDownload = errors.New("gdrive: download ended before the expected size")
	ErrChunksConsumed     = errors.New("gdrive: chunk sequence already consumed")
)

// ByteRange is an inclusive byte range, as used in a Range header.
type ByteRange struct {
	Start int64
	End   int64
}

// Len is the number of bytes the range covers.
func (r ByteRange) Len() int64 {
	return r.End - r.Start + 1
}

// Header renders the range as an HTTP Range header value.
func (r ByteRange) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

// SplitRanges splits [0, total) into contiguous inclusive ranges of at most
// chunk bytes. A zero total yields an empty, non-nil slice. A non-positive
// chunk or negative total yields nil.
func SplitRanges(total, chunk int64) []ByteRange {
	if chunk <= 0 || total < 0 {
		return nil
	}

	n := total / chunk
	if total%chunk != 0 {
		n++
	}

	ranges := make([]ByteRange, 0, n)

	// total-start never overflows, so neither does the end offset.
	for start := int64(0); start < total; {
		step := min(chunk, total-start)
		ranges = append(ranges, ByteRange{Start: start, End: start + step - 1})

		if step == total-start {
			break
		}

		start += step
	}

	return ranges
}

// Chunks returns a lazy sequence of the file's content in chunkSize pieces.
// Each step issues one ranged GET. A response other than 206 Partial Content
// logs a warning and ends the sequence without an error. A transport error
// is yielded once and ends the sequence. The sequence can be iterated once;
// later iterations yield ErrChunksConsumed.
func (c *Client) Chunks(ctx context.Context, f *File, chunkSize int64) iter.Seq2[[]byte, error] {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var used atomic.Bool

	return func(yield func([]byte, error) bool) {
		if used.Swap(true) {
			yield(nil, ErrChunksConsumed)
			return
		}

		if f.DownloadURL == "" {
			yield(nil, fmt.Errorf("%w: %s", ErrNoDownloadURL, f.ID))
			return
		}

		for _, br := range SplitRanges(f.Size, chunkSize) {
			data, ok, err := c.fetchRange(ctx, f, br)
			if err != nil {
				yield(nil, err)
				return
			}

			if !ok {
				return
			}

			if !yield(data, nil) {
				return
			}
		}
	}
}

// fetchRange GETs one range. ok is false when the server answered with
// anything other than 206.
func (c *Client) fetchRange(ctx context.Context, f *File, br ByteRange) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.DownloadURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("gdrive: creating range request: %w", err)
	}

	if err := c.authorize(ctx, req); err != nil {
		return nil, false, err
	}

	req.Header.Set("Range", br.Header())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("gdrive: downloading %s %s: %w", f.ID, br.Header(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		c.logger.Warn("range request not satisfied, ending download",
			slog.String("id", f.ID),
			slog.String("range", br.Header()),
			slog.Int("status", resp.StatusCode),
		)

		return nil, false, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("gdrive: reading %s %s: %w", f.ID, br.Header(), err)
	}

	return data, true, nil
}

// ChunkReader adapts a chunk sequence to io.ReadCloser.
type ChunkReader struct {
	next func() ([]byte, error, bool)
	stop func()
	buf  []byte
	err  error
}

// NewChunkReader returns a reader pulling from seq on demand. Close releases
// the underlying iterator.
func NewChunkReader(seq iter.Seq2[[]byte, error]) *ChunkReader {
	next, stop := iter.Pull2(seq)

	return &ChunkReader{next: next, stop: stop}
}

func (r *ChunkReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.err != nil {
			return 0, r.err
		}

		data, err, ok := r.next()
		switch {
		case !ok:
			r.err = io.EOF
		case err != nil:
			r.err = err
		default:
			r.buf = data
		}
	}

	n := copy(p, r.buf)
	r.buf = r.buf[n:]

	return n, nil
}

// Close stops the sequence. Further reads return io.ErrClosedPipe.
func (r *ChunkReader) Close() error {
	r.stop()
	r.buf = nil
	r.err = io.ErrClosedPipe

	return nil
}

// ServeChunks writes header to w, then every chunk of seq, flushing after
// each one. It returns the number of body bytes written. Once the status
// line has gone out, errors can only end the body early.
func ServeChunks(w http.ResponseWriter, header http.Header, seq iter.Seq2[[]byte, error]) (int64, error) {
	for k, vs := range header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}

	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)

	var written int64

	for data, err := range seq {
		if err != nil {
			return written, err
		}

		n, err := w.Write(data)
		written += int64(n)

		if err != nil {
			return written, fmt.Errorf("gdrive: writing chunk: %w", err)
		}

		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return written, fmt.Errorf("gdrive: flushing chunk: %w", err)
		}
	}

	return written, nil
}
