package replay

import (
	"context"

	"go.uber.org/multierr"

	"go.viam.com/skeletal/components/camera"
	"go.viam.com/skeletal/tof"
)

type recordingSource struct {
	camera.FrameSource
	rec *Recorder
}

// Tee returns a source that writes every frame it delivers into rec. Closing it closes both.
func Tee(src camera.FrameSource, rec *Recorder) camera.FrameSource {
	return &recordingSource{FrameSource: src, rec: rec}
}

func (rs *recordingSource) NextFrame(ctx context.Context) (*tof.RawFrame, error) {
	frame, err := rs.FrameSource.NextFrame(ctx)
	if err != nil {
		return nil, err
	}
	if err := rs.rec.Write(frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func (rs *recordingSource) Close(ctx context.Context) error {
	return multierr.Combine(rs.FrameSource.Close(ctx), rs.rec.Close())
}
