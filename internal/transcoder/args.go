package transcoder

import (
	"fmt"
	"strconv"
)

// Defaults for the portrait clip output.
const (
	DefaultClipWidth   = 1080
	DefaultClipHeight  = 1920
	DefaultVideoCodec  = "libx264"
	DefaultAudioCodec  = "aac"
	DefaultPreset      = "ultrafast"
	DefaultThreadCount = 1
)

// Defaults for speech-ready audio extraction.
const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1
	DefaultPCMCodec   = "pcm_s16le"
)

// ClipOptions describes a trim + scale/pad transcode.
type ClipOptions struct {
	Input  string
	Output string

	// Start and End are passed to ffmpeg verbatim, so both plain seconds
	// ("12.5") and timestamps ("00:00:12.500") work.
	Start string
	End   string

	Width      int
	Height     int
	VideoCodec string
	AudioCodec string
	Preset     string
	Threads    int
}

// AudioOptions describes an audio-only extraction.
type AudioOptions struct {
	Input      string
	Output     string
	SampleRate int
	Channels   int
	Codec      string
	Threads    int
}

// ScalePadFilter returns a video filter that fits the input inside
// width x height keeping its aspect ratio and pads the rest with black.
func ScalePadFilter(width, height int) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black",
		width, height, width, height,
	)
}

func (o ClipOptions) withDefaults() ClipOptions {
	if o.Width <= 0 {
		o.Width = DefaultClipWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultClipHeight
	}
	if o.VideoCodec == "" {
		o.VideoCodec = DefaultVideoCodec
	}
	if o.AudioCodec == "" {
		o.AudioCodec = DefaultAudioCodec
	}
	if o.Preset == "" {
		o.Preset = DefaultPreset
	}
	if o.Threads <= 0 {
		o.Threads = DefaultThreadCount
	}
	return o
}

func (o AudioOptions) withDefaults() AudioOptions {
	if o.SampleRate <= 0 {
		o.SampleRate = DefaultSampleRate
	}
	if o.Channels <= 0 {
		o.Channels = DefaultChannels
	}
	if o.Codec == "" {
		o.Codec = DefaultPCMCodec
	}
	if o.Threads <= 0 {
		o.Threads = DefaultThreadCount
	}
	return o
}

// ClipArgs builds the ffmpeg arguments for a clip. The output path is
// always the last argument.
func ClipArgs(opts ClipOptions) []string {
	opts = opts.withDefaults()
	return []string{
		"-y",
		"-ss", opts.Start,
		"-to", opts.End,
		"-i", opts.Input,
		"-vf", ScalePadFilter(opts.Width, opts.Height),
		"-c:v", opts.VideoCodec,
		"-preset", opts.Preset,
		"-c:a", opts.AudioCodec,
		"-threads", strconv.Itoa(opts.Threads),
		opts.Output,
	}
}

// AudioArgs builds the ffmpeg arguments for audio extraction. The output
// path is always the last argument.
func AudioArgs(opts AudioOptions) []string {
	opts = opts.withDefaults()
	return []string{
		"-y",
		"-i", opts.Input,
		"-vn",
		"-ac", strconv.Itoa(opts.Channels),
		"-ar", strconv.Itoa(opts.SampleRate),
		"-acodec", opts.Codec,
		"-threads", strconv.Itoa(opts.Threads),
		opts.Output,
	}
}
