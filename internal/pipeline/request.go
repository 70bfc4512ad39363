package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TimeValue is a request time that may arrive as a JSON number or a
// numeric-like string. It is handed to the transcoder in its textual form
// without range checks.
type TimeValue struct {
	raw string
	set bool
}

// NewTimeValue returns a set TimeValue holding s.
func NewTimeValue(s string) TimeValue {
	return TimeValue{raw: s, set: true}
}

// IsSet reports whether a value was provided.
func (t TimeValue) IsSet() bool {
	return t.set
}

func (t TimeValue) String() string {
	return t.raw
}

// UnmarshalJSON accepts numbers, strings and null.
func (t *TimeValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = TimeValue{}
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*t = TimeValue{}
			return nil
		}
		*t = NewTimeValue(s)
		return nil
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("time must be a number or string: %w", err)
	}
	*t = NewTimeValue(n.String())
	return nil
}

// MarshalJSON writes the value back as a string, or null when unset.
func (t TimeValue) MarshalJSON() ([]byte, error) {
	if !t.set {
		return []byte("null"), nil
	}
	return json.Marshal(t.raw)
}

// ClipRequest is the body of POST /clip.
type ClipRequest struct {
	InputURL  string    `json:"inputUrl"`
	StartTime TimeValue `json:"startTime"`
	EndTime   TimeValue `json:"endTime"`
	FileName  string    `json:"fileName"`
}

// Validate checks that every required field is present.
func (r ClipRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.InputURL) == "" {
		missing = append(missing, "inputUrl")
	}
	if !r.StartTime.IsSet() {
		missing = append(missing, "startTime")
	}
	if !r.EndTime.IsSet() {
		missing = append(missing, "endTime")
	}
	if strings.TrimSpace(r.FileName) == "" {
		missing = append(missing, "fileName")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// AudioRequest is the body of POST /extract-audio.
type AudioRequest struct {
	InputURL string `json:"inputUrl"`
	FileName string `json:"fileName,omitempty"`
}

// Validate checks that every required field is present.
func (r AudioRequest) Validate() error {
	if strings.TrimSpace(r.InputURL) == "" {
		return &ValidationError{Fields: []string{"inputUrl"}}
	}
	return nil
}

// DecodeClipRequest parses a /clip body. Decode failures are reported as
// ValidationError.
func DecodeClipRequest(body []byte) (ClipRequest, error) {
	var req ClipRequest
	if err := decode(body, &req); err != nil {
		return ClipRequest{}, err
	}
	return req, nil
}

// DecodeAudioRequest parses an /extract-audio body. Decode failures are
// reported as ValidationError.
func DecodeAudioRequest(body []byte) (AudioRequest, error) {
	var req AudioRequest
	if err := decode(body, &req); err != nil {
		return AudioRequest{}, err
	}
	return req, nil
}

func decode(body []byte, v interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return &ValidationError{Err: errors.New("empty body")}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}
