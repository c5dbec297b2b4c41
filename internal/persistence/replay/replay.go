// Package replay stores a match as a zstd JSONL stream: one header record,
// one record per resolved turn and a closing result record.
package replay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"kitchenrush.ai/internal/persistence/snapshot"
	"kitchenrush.ai/internal/sim/game"
)

const Version = 1

// Record types.
const (
	TypeHeader = "HEADER"
	TypeFrame  = "FRAME"
	TypeResult = "RESULT"
)

var ErrNoHeader = errors.New("replay: missing header record")

type Record struct {
	Type    string                  `json:"type"`
	Version int                     `json:"version,omitempty"`
	Match   *snapshot.MatchHeaderV1 `json:"match,omitempty"`
	Frame   *snapshot.FrameV1       `json:"frame,omitempty"`
	Result  *game.Outcome           `json:"result,omitempty"`
}

// Writer implements game.FrameWriter. The header is written on creation so
// a crashed match still leaves a readable prefix.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	n   int
}

func Create(path string, header snapshot.MatchHeaderV1) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w := &Writer{f: f, enc: enc, w: bufio.NewWriterSize(enc, 256*1024)}
	if err := w.write(Record{Type: TypeHeader, Version: Version, Match: &header}); err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) WriteFrame(f snapshot.FrameV1) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.n++
	return w.writeLocked(Record{Type: TypeFrame, Frame: &f})
}

func (w *Writer) WriteResult(o game.Outcome) error {
	return w.write(Record{Type: TypeResult, Result: &o})
}

// Frames is the number of frames written so far.
func (w *Writer) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

func (w *Writer) write(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeLocked(r)
}

func (w *Writer) writeLocked(r Record) error {
	if w.w == nil {
		return os.ErrClosed
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	var firstErr error
	if err := w.w.Flush(); err != nil {
		firstErr = err
	}
	if err := w.enc.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.f.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	w.w = nil
	return firstErr
}

// Replay is a fully loaded replay file. Result is nil when the match did not
// finish cleanly.
type Replay struct {
	Match  snapshot.MatchHeaderV1
	Frames []snapshot.FrameV1
	Result *game.Outcome
}

func Read(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (*Replay, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	jd := json.NewDecoder(bufio.NewReaderSize(dec, 256*1024))
	var out *Replay
	for {
		var rec Record
		if err := jd.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return out, err
		}
		switch rec.Type {
		case TypeHeader:
			if rec.Version != Version {
				return nil, fmt.Errorf("replay version %d not supported", rec.Version)
			}
			if rec.Match == nil {
				return nil, ErrNoHeader
			}
			out = &Replay{Match: *rec.Match}
		case TypeFrame:
			if out == nil {
				return nil, ErrNoHeader
			}
			if rec.Frame != nil {
				out.Frames = append(out.Frames, *rec.Frame)
			}
		case TypeResult:
			if out == nil {
				return nil, ErrNoHeader
			}
			out.Result = rec.Result
		default:
			return out, fmt.Errorf("replay: unknown record type %q", rec.Type)
		}
	}
	if out == nil {
		return nil, ErrNoHeader
	}
	return out, nil
}
