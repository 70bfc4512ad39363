package pipeline

import (
	"strings"
	"testing"
)

func TestDecodeClipRequest(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantStart string
		wantSet   bool
		wantErr   bool
	}{
		{"number", `{"inputUrl":"u","startTime":12.5,"endTime":20,"fileName":"f"}`, "12.5", true, false},
		{"string", `{"inputUrl":"u","startTime":"00:00:05","endTime":"10","fileName":"f"}`, "00:00:05", true, false},
		{"zero", `{"inputUrl":"u","startTime":0,"endTime":1,"fileName":"f"}`, "0", true, false},
		{"null", `{"inputUrl":"u","startTime":null,"endTime":1,"fileName":"f"}`, "", false, false},
		{"empty string", `{"inputUrl":"u","startTime":"","endTime":1,"fileName":"f"}`, "", false, false},
		{"boolean", `{"inputUrl":"u","startTime":true,"endTime":1,"fileName":"f"}`, "", false, true},
		{"malformed", `{"inputUrl":`, "", false, true},
		{"empty body", ``, "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeClipRequest([]byte(tt.body))
			if tt.wantErr {
				if !IsValidation(err) {
					t.Fatalf("DecodeClipRequest() error = %v, want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeClipRequest() error = %v", err)
			}
			if req.StartTime.IsSet() != tt.wantSet {
				t.Errorf("StartTime.IsSet() = %v, want %v", req.StartTime.IsSet(), tt.wantSet)
			}
			if req.StartTime.String() != tt.wantStart {
				t.Errorf("StartTime = %q, want %q", req.StartTime.String(), tt.wantStart)
			}
		})
	}
}

func TestAudioRequestValidate(t *testing.T) {
	if err := (AudioRequest{InputURL: "https://media.test/a.mp4"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
	err := (AudioRequest{FileName: "x"}).Validate()
	if !IsValidation(err) || !strings.Contains(err.Error(), "inputUrl") {
		t.Errorf("Validate() error = %v, want ValidationError naming inputUrl", err)
	}
}

func TestClipRequestReportsAllMissingFields(t *testing.T) {
	err := ClipRequest{}.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	for _, f := range []string{"inputUrl", "startTime", "endTime", "fileName"} {
		if !strings.Contains(err.Error(), f) {
			t.Errorf("error %q should name %s", err.Error(), f)
		}
	}
}

func TestAudioKey(t *testing.T) {
	if got := AudioKey("lecture"); got != "lecture_audio.wav" {
		t.Errorf("AudioKey(lecture) = %q", got)
	}
	a, b := AudioKey(""), AudioKey("")
	if a == b {
		t.Errorf("generated keys should differ, both %q", a)
	}
}

func TestStorageKeysMatchValidatedFileName(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		want     string
	}{
		{name: "plain", fileName: "talk", want: "talk_audio.wav"},
		{name: "leading space", fileName: " talk", want: "talk_audio.wav"},
		{name: "surrounding whitespace", fileName: "\ttalk \n", want: "talk_audio.wav"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AudioKey(tt.fileName); got != tt.want {
				t.Errorf("AudioKey(%q) = %q, want %q", tt.fileName, got, tt.want)
			}
		})
	}

	if got := AudioKey("   "); !strings.HasPrefix(got, "audio-") {
		t.Errorf("AudioKey(blank) = %q, want a generated key", got)
	}

	req := ClipRequest{
		InputURL:  " https://src.example/v.mp4 ",
		StartTime: NewTimeValue("1"),
		EndTime:   NewTimeValue("2"),
		FileName:  " clip.mp4 ",
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	op := ClipOperation(req)
	if op.Key != "clip.mp4" {
		t.Errorf("clip key = %q, want %q", op.Key, "clip.mp4")
	}
	if op.InputURL != "https://src.example/v.mp4" {
		t.Errorf("clip input = %q, want trimmed URL", op.InputURL)
	}
}
