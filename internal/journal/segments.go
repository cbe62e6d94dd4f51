package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// SegmentWriter appends records as zstd-compressed JSON lines. A new file is
// started every segmentTicks ticks: events-<segment>.jsonl.zst.
type SegmentWriter struct {
	dir          string
	segmentTicks int64

	mu      sync.Mutex
	segment int64
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewSegmentWriter writes segments under dir. segmentTicks <= 0 keeps
// everything in segment 0.
func NewSegmentWriter(dir string, segmentTicks int64) *SegmentWriter {
	return &SegmentWriter{dir: dir, segmentTicks: segmentTicks, segment: -1}
}

// SegmentFor returns the segment number holding tick.
func (w *SegmentWriter) SegmentFor(tick int64) int64 {
	if w.segmentTicks <= 0 || tick < 0 {
		return 0
	}
	return tick / w.segmentTicks
}

// Path returns the file name of segment.
func (w *SegmentWriter) Path(segment int64) string {
	return filepath.Join(w.dir, fmt.Sprintf("events-%08d.jsonl.zst", segment))
}

// WriteRecord appends rec to the segment for its tick.
func (w *SegmentWriter) WriteRecord(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if seg := w.SegmentFor(rec.Tick); seg != w.segment || w.w == nil {
		if err := w.rotateLocked(seg); err != nil {
			return err
		}
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes and closes the current segment.
func (w *SegmentWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *SegmentWriter) rotateLocked(segment int64) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.Path(segment), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.segment = segment
	return nil
}

func (w *SegmentWriter) closeLocked() error {
	var err error
	if w.w != nil {
		err = w.w.Flush()
	}
	if w.enc != nil {
		if cerr := w.enc.Close(); err == nil {
			err = cerr
		}
		w.enc = nil
	}
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
		w.f = nil
	}
	w.w = nil
	return err
}

// ReadSegment decodes every record in a segment file. Files reopened for
// append hold several zstd frames; the decoder reads them back to back.
func ReadSegment(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeRecords(f)
}

// DecodeRecords reads zstd-compressed JSON lines from r.
func DecodeRecords(r io.Reader) ([]Record, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Record
	jd := json.NewDecoder(dec)
	for {
		var rec Record
		if err := jd.Decode(&rec); err == io.EOF {
			return out, nil
		} else if err != nil {
			return out, fmt.Errorf("decode record %d: %w", len(out), err)
		}
		out = append(out, rec)
	}
}
