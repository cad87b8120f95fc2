package sdk

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/beanbocchi/genestack/internal/model"
	"github.com/beanbocchi/genestack/internal/utils/progressr"
	"github.com/beanbocchi/genestack/pkg/telemetry"
)

// chunkState tracks one upload across server redirects.
type chunkState struct {
	offset   int64 // bytes acknowledged by the server
	reported int64 // bytes already passed to the progress reporter
	hashed   int64 // bytes already fed to the digest
	index    int   // hop number, starting at 0
}

// UploadFile streams the file at filePath to the application's upload
// endpoint, authorized by token, and returns the decoded JSON result.
//
// The server drives chunking: it may answer a hop with a redirect whose
// Location names the next endpoint and whose Range header acknowledges the
// bytes it kept. The next hop sends only the remaining bytes. Progress is
// reported once per byte regardless of how many hops occur.
func (a *Application) UploadFile(ctx context.Context, filePath, token string) (result any, err error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, model.ErrFileNotFound.Fmt(filePath).Wrap(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, model.ErrFileNotFound.Fmt(filePath).Wrap(err)
	}
	if info.IsDir() {
		return nil, model.ErrFileNotFound.Fmt(filePath).Wrap(fmt.Errorf("is a directory"))
	}

	name := filepath.Base(filePath)
	total := info.Size()
	target := fmt.Sprintf("/application/upload/%s/%s/%s", a.id, token, url.PathEscape(name))

	s := a.session
	reporter := s.progress()
	hasher := blake3.New()
	state := &chunkState{}

	ctx, span := s.telemetry.StartUpload(ctx, a.id, name)
	defer func() {
		telemetry.EndSpan(span, err)
		s.telemetry.RecordUpload(ctx, telemetry.UploadData{
			Application: a.id,
			File:        name,
			Bytes:       state.offset,
			Hops:        state.index,
			Error:       err,
		})
	}()

	for {
		if state.index > s.maxUploadHops {
			return nil, model.ErrRedirectsExhausted.Fmt(name, s.maxUploadHops)
		}

		resp, sent, err := a.sendChunk(ctx, f, target, name, total, state, reporter, hasher)
		if err != nil {
			return nil, err
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			discard(resp)
			return nil, model.ErrAuthentication

		case isRedirect(resp.StatusCode):
			location, err := resp.Location()
			discard(resp)
			if err != nil {
				return nil, model.ErrInvalidResponse.Fmt(target).Wrap(fmt.Errorf("redirect without location: %w", err))
			}
			ack, err := acknowledged(resp.Header.Get("Range"), sent.Position())
			if err != nil {
				return nil, model.ErrInvalidResponse.Fmt(target).Wrap(err)
			}
			if ack < state.offset || ack > total {
				return nil, model.ErrInvalidResponse.Fmt(target).Wrap(fmt.Errorf("acknowledged offset %d outside [%d, %d]", ack, state.offset, total))
			}

			s.logger.DebugContext(ctx, "upload chunk acknowledged",
				"file", name,
				"chunk", state.index,
				"offset", ack,
				"total", total,
				"sent", sent.Consumed(),
				"read", sent.Progress(),
				"next", location.String(),
			)
			state.offset = ack
			state.index++
			target = location.String()

		case resp.StatusCode >= http.StatusBadRequest:
			discard(resp)
			return nil, model.ErrUnexpectedStatus.Fmt(resp.StatusCode, target)

		default:
			state.offset = total
			s.logger.DebugContext(ctx, "upload complete",
				"file", name,
				"bytes", total,
				"hops", state.index,
				"blake3", hex.EncodeToString(hasher.Sum(nil)),
			)
			return decodeResponse(resp, target, nil)
		}
	}
}

// sendChunk posts [state.offset, total) of f to target without following
// redirects. It returns once the transport has released the request body,
// so state is never touched concurrently. The returned reader tells how far
// into the file the transport read.
func (a *Application) sendChunk(ctx context.Context, f *os.File, target, name string, total int64, state *chunkState, reporter ProgressReporter, hasher io.Writer) (*http.Response, *progressr.Reader, error) {
	remaining := total - state.offset

	section := io.NewSectionReader(f, state.offset, remaining)
	digest := &digestWriter{w: hasher, state: state, pos: state.offset}
	reader := progressr.NewReaderAt(io.TeeReader(section, digest), state.offset, total, func(pos int64) {
		fresh := pos - state.reported
		if fresh > 0 {
			state.reported = pos
		} else {
			fresh = 0
		}
		reporter.Report(name, fresh, total)
	})

	var body io.Reader = http.NoBody
	released := make(chan struct{})
	if remaining > 0 {
		body = &releaseOnClose{Reader: reader, released: released}
	} else {
		close(released)
	}

	req, err := a.session.newRequest(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, nil, err
	}
	req.ContentLength = remaining
	req.Header.Set("Content-Type", contentTypeBinary)
	req.Header.Set(extendSessionHeader, "true")

	resp, err := a.session.do(req, false)

	select {
	case <-released:
	case <-ctx.Done():
		if resp != nil {
			discard(resp)
		}
		return nil, nil, &model.ConnectionError{Address: req.URL.String(), Cause: ctx.Err()}
	}
	if err != nil {
		return nil, nil, err
	}
	return resp, reader, nil
}

// acknowledged parses a Range header such as "bytes=0-1023" into the number
// of bytes the server holds. An empty header yields fallback, the position
// the transport read up to. That is what the transport handed to the
// connection, not what the server stored: a server that redirects mid-body
// without a Range header loses the unacknowledged tail.
func acknowledged(header string, fallback int64) (int64, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return fallback, nil
	}
	header = strings.TrimPrefix(header, "bytes")
	header = strings.TrimLeft(header, "= ")
	header, _, _ = strings.Cut(header, "/")

	start, end, ok := strings.Cut(header, "-")
	if !ok {
		return 0, fmt.Errorf("malformed range %q", header)
	}
	if start = strings.TrimSpace(start); start != "0" {
		return 0, fmt.Errorf("range must start at 0, got %q", header)
	}
	last, err := strconv.ParseInt(strings.TrimSpace(end), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed range %q: %w", header, err)
	}
	return last + 1, nil
}

// digestWriter forwards only bytes past state.hashed, so bytes re-sent after
// a partial acknowledgement are hashed once.
type digestWriter struct {
	w     io.Writer
	state *chunkState
	pos   int64
}

func (d *digestWriter) Write(p []byte) (int, error) {
	end := d.pos + int64(len(p))
	if end > d.state.hashed {
		skip := int64(0)
		if d.state.hashed > d.pos {
			skip = d.state.hashed - d.pos
		}
		if _, err := d.w.Write(p[skip:]); err != nil {
			return 0, err
		}
		d.state.hashed = end
	}
	d.pos = end
	return len(p), nil
}

// releaseOnClose signals when the transport is done with a request body.
type releaseOnClose struct {
	io.Reader
	once     sync.Once
	released chan struct{}
}

func (r *releaseOnClose) Close() error {
	r.once.Do(func() { close(r.released) })
	return nil
}
