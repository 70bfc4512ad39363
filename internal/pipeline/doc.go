// Package pipeline implements the download → transcode → upload → resolve
// sequence shared by the clip and extract-audio operations.
//
// A run moves through the stages Validating, Fetching, Transcoding,
// Uploading and ResolvingURL. Both scratch files are released on every
// exit path. No stage is retried; the first failure ends the run and is
// reported as one of ValidationError, FetchError, TranscodeError or
// UploadError.
//
// Collaborators (fetcher, transcoder, store, scratch directory, observer,
// history) are injected through Deps so tests can substitute fakes.
package pipeline
