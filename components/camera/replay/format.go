package replay

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/skeletal/tof"
)

// A recording is a zstd stream holding a header followed by frames, all little endian:
//
//	header: "TOFR" | version u16 | recording id [16]byte | frame type length u16 | frame type
//	frame:  seq u64 | unix nanos i64 | depth w,h u32 | ir w,h u32 | depth samples | ir samples
const (
	magic         = "TOFR"
	formatVersion = 1

	// maxPlaneSamples bounds allocations when reading a damaged file.
	maxPlaneSamples = 1 << 24
)

// ErrBadRecording is returned when a file is not a recording this package can read.
var ErrBadRecording = errors.New("not a valid frame recording")

type frameHeader struct {
	Seq       uint64
	UnixNanos int64
	DepthW    uint32
	DepthH    uint32
	IRW       uint32
	IRH       uint32
}

// A Recorder writes frames into a compressed recording.
type Recorder struct {
	id     uuid.UUID
	dst    io.WriteCloser
	enc    *zstd.Encoder
	buf    *bufio.Writer
	frames int
}

// CreateRecorder creates or truncates the file at path and writes a recording header to it.
func CreateRecorder(path, frameType string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	rec, err := NewRecorder(f, frameType)
	if err != nil {
		return nil, multierr.Combine(err, f.Close())
	}
	return rec, nil
}

// NewRecorder writes a recording header to dst. Closing the recorder closes dst.
func NewRecorder(dst io.WriteCloser, frameType string) (*Recorder, error) {
	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, errors.Wrap(err, "could not create encoder")
	}
	rec := &Recorder{id: uuid.New(), dst: dst, enc: enc, buf: bufio.NewWriter(enc)}

	if _, err := rec.buf.WriteString(magic); err != nil {
		return nil, err
	}
	if err := binary.Write(rec.buf, binary.LittleEndian, uint16(formatVersion)); err != nil {
		return nil, err
	}
	if _, err := rec.buf.Write(rec.id[:]); err != nil {
		return nil, err
	}
	if err := binary.Write(rec.buf, binary.LittleEndian, uint16(len(frameType))); err != nil {
		return nil, err
	}
	if _, err := rec.buf.WriteString(frameType); err != nil {
		return nil, err
	}
	return rec, nil
}

// ID identifies the recording.
func (r *Recorder) ID() uuid.UUID {
	return r.id
}

// Frames returns how many frames were written.
func (r *Recorder) Frames() int {
	return r.frames
}

// Write appends one frame.
func (r *Recorder) Write(frame *tof.RawFrame) error {
	if len(frame.Depth.Data) != frame.Depth.Width*frame.Depth.Height ||
		len(frame.IR.Data) != frame.IR.Width*frame.IR.Height {
		return errors.Wrap(tof.ErrInvalidShape, "cannot record a frame whose planes do not match their sizes")
	}
	hdr := frameHeader{
		Seq:    frame.Seq,
		DepthW: uint32(frame.Depth.Width),
		DepthH: uint32(frame.Depth.Height),
		IRW:    uint32(frame.IR.Width),
		IRH:    uint32(frame.IR.Height),
	}
	if !frame.Timestamp.IsZero() {
		hdr.UnixNanos = frame.Timestamp.UnixNano()
	}
	if err := binary.Write(r.buf, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	if err := binary.Write(r.buf, binary.LittleEndian, frame.Depth.Data); err != nil {
		return err
	}
	if err := binary.Write(r.buf, binary.LittleEndian, frame.IR.Data); err != nil {
		return err
	}
	r.frames++
	return nil
}

// Close flushes the recording and closes the destination.
func (r *Recorder) Close() error {
	return multierr.Combine(r.buf.Flush(), r.enc.Close(), r.dst.Close())
}

// A Reader reads frames back from a recording.
type Reader struct {
	id        uuid.UUID
	frameType string
	dec       *zstd.Decoder
	buf       *bufio.Reader
}

// NewReader reads the recording header from src.
func NewReader(src io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return nil, errors.Wrap(err, "could not create decoder")
	}
	r := &Reader{dec: dec, buf: bufio.NewReader(dec)}
	if err := r.readHeader(); err != nil {
		dec.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) readHeader() error {
	var m [len(magic)]byte
	if _, err := io.ReadFull(r.buf, m[:]); err != nil {
		return errors.Wrap(ErrBadRecording, err.Error())
	}
	if string(m[:]) != magic {
		return errors.Wrapf(ErrBadRecording, "bad magic %q", m[:])
	}
	var version uint16
	if err := binary.Read(r.buf, binary.LittleEndian, &version); err != nil {
		return errors.Wrap(ErrBadRecording, err.Error())
	}
	if version != formatVersion {
		return errors.Wrapf(ErrBadRecording, "unsupported version %d", version)
	}
	if _, err := io.ReadFull(r.buf, r.id[:]); err != nil {
		return errors.Wrap(ErrBadRecording, err.Error())
	}
	var n uint16
	if err := binary.Read(r.buf, binary.LittleEndian, &n); err != nil {
		return errors.Wrap(ErrBadRecording, err.Error())
	}
	frameType := make([]byte, n)
	if _, err := io.ReadFull(r.buf, frameType); err != nil {
		return errors.Wrap(ErrBadRecording, err.Error())
	}
	r.frameType = string(frameType)
	return nil
}

// ID identifies the recording.
func (r *Reader) ID() uuid.UUID {
	return r.id
}

// FrameType is the frame type the recording was made with.
func (r *Reader) FrameType() string {
	return r.frameType
}

// Next returns the next frame, or io.EOF after the last one. A frame cut short returns
// io.ErrUnexpectedEOF.
func (r *Reader) Next() (*tof.RawFrame, error) {
	var hdr frameHeader
	if err := binary.Read(r.buf, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}
	depth, err := readPlane(r.buf, hdr.DepthW, hdr.DepthH)
	if err != nil {
		return nil, err
	}
	ir, err := readPlane(r.buf, hdr.IRW, hdr.IRH)
	if err != nil {
		return nil, err
	}
	frame := &tof.RawFrame{Seq: hdr.Seq, Depth: depth, IR: ir}
	if hdr.UnixNanos != 0 {
		frame.Timestamp = time.Unix(0, hdr.UnixNanos)
	}
	return frame, nil
}

func readPlane(src io.Reader, w, h uint32) (tof.Plane, error) {
	if uint64(w)*uint64(h) > maxPlaneSamples {
		return tof.Plane{}, errors.Wrapf(ErrBadRecording, "plane of %dx%d is too large", w, h)
	}
	plane := tof.NewPlane(int(w), int(h))
	if err := binary.Read(src, binary.LittleEndian, plane.Data); err != nil {
		if errors.Is(err, io.EOF) {
			return tof.Plane{}, io.ErrUnexpectedEOF
		}
		return tof.Plane{}, err
	}
	return plane, nil
}

// Close releases the decoder.
func (r *Reader) Close() {
	r.dec.Close()
}
