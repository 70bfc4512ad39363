package pipeline

import "time"

// Observer receives pipeline events. The metrics package implements it.
type Observer interface {
	RunStarted(operation string)
	RunFinished(operation string, d time.Duration, err error)
	StageFinished(operation string, stage Stage, d time.Duration, err error)
	Transferred(operation, direction string, n int64)
	Warned(operation string)
}

// Transfer directions reported to Observer.Transferred.
const (
	DirectionDownload = "download"
	DirectionUpload   = "upload"
)

type noopObserver struct{}

func (noopObserver) RunStarted(string)                                 {}
func (noopObserver) RunFinished(string, time.Duration, error)          {}
func (noopObserver) StageFinished(string, Stage, time.Duration, error) {}
func (noopObserver) Transferred(string, string, int64)                 {}
func (noopObserver) Warned(string)                                     {}
