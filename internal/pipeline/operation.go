package pipeline

import (
	"fmt"
	"strings"

	"clip-worker/internal/transcoder"

	"github.com/google/uuid"
)

// Operation names.
const (
	OpClip         = "clip"
	OpExtractAudio = "extract-audio"
)

// MinAudioBytes is the output size below which an extraction is flagged as
// probably empty. The run still succeeds.
const MinAudioBytes = 1024

// Operation parameterizes a pipeline run: which source to fetch, how to
// transcode it and where the result is stored.
type Operation struct {
	Name        string
	InputURL    string
	Key         string
	ContentType string

	// InputExt and OutputExt name scratch file extensions. The output
	// extension selects the transcoder's container.
	InputExt  string
	OutputExt string

	// Args builds the transcoder argument list for the given scratch paths.
	Args func(input, output string) []string

	// Inspect returns non-fatal warnings about the produced output.
	Inspect func(outputBytes int64) []string
}

// ClipOperation builds the clip operation for a validated request.
func ClipOperation(req ClipRequest) Operation {
	return Operation{
		Name:        OpClip,
		InputURL:    strings.TrimSpace(req.InputURL),
		Key:         strings.TrimSpace(req.FileName),
		ContentType: "video/mp4",
		InputExt:    ".src",
		OutputExt:   ".mp4",
		Args: func(input, output string) []string {
			return transcoder.ClipArgs(transcoder.ClipOptions{
				Input:  input,
				Output: output,
				Start:  req.StartTime.String(),
				End:    req.EndTime.String(),
			})
		},
	}
}

// AudioOperation builds the extract-audio operation for a validated request.
func AudioOperation(req AudioRequest) Operation {
	return Operation{
		Name:        OpExtractAudio,
		InputURL:    strings.TrimSpace(req.InputURL),
		Key:         AudioKey(req.FileName),
		ContentType: "audio/wav",
		InputExt:    ".src",
		OutputExt:   ".wav",
		Args: func(input, output string) []string {
			return transcoder.AudioArgs(transcoder.AudioOptions{
				Input:  input,
				Output: output,
			})
		},
		Inspect: func(n int64) []string {
			if n < MinAudioBytes {
				return []string{fmt.Sprintf(
					"extracted audio is only %d bytes; the source may have no audio track", n)}
			}
			return nil
		},
	}
}

// AudioKey returns the storage key for an extraction. Surrounding
// whitespace is dropped, as in validation. Without a file name a fresh
// unique key is generated on every call.
func AudioKey(fileName string) string {
	if name := strings.TrimSpace(fileName); name != "" {
		return name + "_audio.wav"
	}
	return "audio-" + uuid.NewString() + ".wav"
}
