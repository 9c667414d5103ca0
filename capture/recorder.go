// Package capture records presented frames to a video file through ffmpeg.
package capture

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"

	"github.com/richinsley/godeferred/logger"
)

// numBuffers is the depth of the frame queue between the render loop and
// the encoder.
const numBuffers = 3

// ErrClosed is returned by Add after Close.
var ErrClosed = errors.New("capture: recorder closed")

// Config describes the video stream.
type Config struct {
	Output     string
	Width      int
	Height     int
	FPS        int
	Codec      string // "h264" or "hevc"
	HWAccel    bool
	FFmpegPath string
}

// Frame is one bottom-up RGBA frame as read back from the default
// framebuffer.
type Frame struct {
	Pixels []byte
	PTS    int64
}

// InputArgs describes the raw frames written to ffmpeg's stdin.
func InputArgs(c Config) ffmpeg.KwArgs {
	return ffmpeg.KwArgs{
		"f":         "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", c.Width, c.Height),
		"framerate": c.FPS,
	}
}

// OutputArgs picks the encoder. Frames arrive bottom-up, so they are
// flipped on the way through.
func OutputArgs(c Config, goos string) ffmpeg.KwArgs {
	out := ffmpeg.KwArgs{
		"vf":      "vflip",
		"pix_fmt": "yuv420p",
		"b:v":     "25M",
	}
	hevc := c.Codec == "hevc"
	switch {
	case c.HWAccel && goos == "linux":
		out["c:v"] = "h264_nvenc"
		if hevc {
			out["c:v"] = "hevc_nvenc"
		}
		out["preset"] = "p2"
	case c.HWAccel && goos == "darwin":
		out["c:v"] = "h264_videotoolbox"
		if hevc {
			out["c:v"] = "hevc_videotoolbox"
		}
	default:
		out["c:v"] = "libx264"
		if hevc {
			out["c:v"] = "libx265"
		}
	}
	if hevc && len(c.Output) > 4 && c.Output[len(c.Output)-4:] == ".mp4" {
		out["tag:v"] = "hvc1"
	}
	return out
}

// Recorder queues frames and feeds them to an encoder goroutine. Frames
// offered while the queue is full are dropped. Add and Close are called
// from the render loop only.
type Recorder struct {
	cfg       Config
	frameSize int
	frames    chan Frame
	done      chan error
	next      int64
	dropped   int

	closeOnce sync.Once
	closed    bool
	err       error
}

// Start launches ffmpeg for cfg.
func Start(cfg Config) (*Recorder, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.FPS <= 0 {
		return nil, fmt.Errorf("capture: invalid stream %dx%d@%d", cfg.Width, cfg.Height, cfg.FPS)
	}
	run := func(r io.Reader) error {
		cmd := ffmpeg.Input("pipe:", InputArgs(cfg)).
			Output(cfg.Output, OutputArgs(cfg, runtime.GOOS)).
			OverWriteOutput().WithInput(r).ErrorToStdOut()
		if cfg.FFmpegPath != "" {
			cmd = cmd.SetFfmpegPath(cfg.FFmpegPath)
		}
		return cmd.Run()
	}
	logger.Log.Info("recording",
		zap.String("output", cfg.Output),
		zap.Int("width", cfg.Width), zap.Int("height", cfg.Height), zap.Int("fps", cfg.FPS))
	return NewRecorder(cfg, run), nil
}

// NewRecorder wires the frame queue to an encoder that reads raw frames
// from the given reader until EOF. Start uses ffmpeg as the encoder.
func NewRecorder(cfg Config, encode func(io.Reader) error) *Recorder {
	r := &Recorder{
		cfg:       cfg,
		frameSize: cfg.Width * cfg.Height * 4,
		frames:    make(chan Frame, numBuffers),
		done:      make(chan error, 1),
	}
	pr, pw := io.Pipe()
	errc := make(chan error, 1)
	go func() {
		err := encode(pr)
		// Unblock the writer if the encoder quit early.
		pr.CloseWithError(io.ErrClosedPipe)
		errc <- err
	}()
	go r.write(pw, errc)
	return r
}

func (r *Recorder) write(pw *io.PipeWriter, errc <-chan error) {
	var werr error
	for f := range r.frames {
		if werr != nil {
			continue
		}
		if _, err := pw.Write(f.Pixels); err != nil {
			werr = fmt.Errorf("write frame %d: %w", f.PTS, err)
			logger.Log.Error("capture write failed", zap.Error(werr))
		}
	}
	pw.Close()
	r.done <- errors.Join(werr, <-errc)
}

// Size is the fixed stream size in pixels.
func (r *Recorder) Size() (width, height int) { return r.cfg.Width, r.cfg.Height }

// FrameSize is the byte size of one frame.
func (r *Recorder) FrameSize() int { return r.frameSize }

// Dropped is the number of frames discarded because the queue was full.
func (r *Recorder) Dropped() int { return r.dropped }

// Add queues a frame of FrameSize bytes. The recorder takes ownership of
// pixels. It reports false when the frame was dropped.
func (r *Recorder) Add(pixels []byte) (bool, error) {
	if r.closed {
		return false, ErrClosed
	}
	if len(pixels) != r.frameSize {
		return false, fmt.Errorf("capture: frame is %d bytes, want %d", len(pixels), r.frameSize)
	}
	f := Frame{Pixels: pixels, PTS: r.next}
	r.next++
	select {
	case r.frames <- f:
		return true, nil
	default:
		r.dropped++
		return false, nil
	}
}

// Close flushes queued frames, waits for ffmpeg to exit and returns its
// error. Later calls return the same error.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.closed = true
		close(r.frames)
		r.err = <-r.done
		logger.Log.Info("recording finished",
			zap.Int64("frames", r.next), zap.Int("dropped", r.dropped), zap.Error(r.err))
	})
	return r.err
}
