// Package transcoder runs the external ffmpeg binary.
//
// It provides:
//   - Argument builders for the clip (scale, pad, H.264/AAC) and audio
//     extraction (mono 16 kHz PCM) operations
//   - A runner that executes ffmpeg, captures the tail of its stderr and
//     reports failures as *Error
//   - Tracking of running processes so they can be killed on shutdown
//
// ffmpeg is treated as a black box: success is a zero exit status.
package transcoder
