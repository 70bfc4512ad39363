package main

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// scriptedReader returns its answers in order.
type scriptedReader struct {
	answers []string
	prompts []string
}

func (s *scriptedReader) read(prompt string) ([]byte, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.answers) == 0 {
		return nil, errors.New("no more input")
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return []byte(a), nil
}

const validToken = "0123456789abcdef-token"

func TestPrintUsage(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("printUsage panicked: %v", r)
		}
	}()

	printUsage()
}

func TestSanitizeCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "hash", want: "hash"},
		{in: "bad cmd", want: "bad_cmd"},
		{in: "x\ny", want: "x_y"},
		{in: "a-b_c9", want: "a-b_c9"},
	}

	for _, tt := range tests {
		if got := sanitizeCommand(tt.in); got != tt.want {
			t.Errorf("sanitizeCommand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid", token: validToken},
		{name: "minimum length", token: strings.Repeat("x", minTokenLength)},
		{name: "too short", token: "short", wantErr: true},
		{name: "empty", token: "", wantErr: true},
		{name: "leading space", token: " " + validToken, wantErr: true},
		{name: "too long", token: strings.Repeat("x", 73), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateToken([]byte(tt.token))
			if (err != nil) != tt.wantErr {
				t.Errorf("validateToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunHash(t *testing.T) {
	in := &scriptedReader{answers: []string{validToken, validToken}}
	var out bytes.Buffer

	if err := runHash(in, &out, bcrypt.MinCost); err != nil {
		t.Fatalf("runHash() error = %v", err)
	}

	hash := strings.TrimSpace(out.String())
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(validToken)); err != nil {
		t.Errorf("printed hash does not match token: %v", err)
	}
	if len(in.prompts) != 2 {
		t.Errorf("prompted %d times, want 2", len(in.prompts))
	}
}

func TestRunHashErrors(t *testing.T) {
	tests := []struct {
		name    string
		answers []string
	}{
		{name: "mismatch", answers: []string{validToken, validToken + "x"}},
		{name: "too short", answers: []string{"abc", "abc"}},
		{name: "no input", answers: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := runHash(&scriptedReader{answers: tt.answers}, &out, bcrypt.MinCost)
			if err == nil {
				t.Error("runHash() error = nil, want error")
			}
			if out.Len() != 0 {
				t.Errorf("unexpected output %q", out.String())
			}
		})
	}
}

func TestRunHashPiped(t *testing.T) {
	in := &secretReader{lines: bufio.NewReader(strings.NewReader(validToken + "\n"))}
	var out bytes.Buffer

	if err := runHash(in, &out, bcrypt.MinCost); err != nil {
		t.Fatalf("runHash() error = %v", err)
	}
	if err := verifyToken(strings.TrimSpace(out.String()), []byte(validToken)); err != nil {
		t.Errorf("verifyToken() error = %v", err)
	}
}

func TestRunVerify(t *testing.T) {
	hash, err := hashToken([]byte(validToken), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashToken() error = %v", err)
	}

	tests := []struct {
		name    string
		hash    string
		token   string
		wantErr bool
	}{
		{name: "match", hash: hash, token: validToken},
		{name: "mismatch", hash: hash, token: "wrong-token-value", wantErr: true},
		{name: "hash unset", hash: "", token: validToken, wantErr: true},
		{name: "not a bcrypt hash", hash: "plain", token: validToken, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := runVerify(&scriptedReader{answers: []string{tt.token}}, &out, tt.hash)
			if (err != nil) != tt.wantErr {
				t.Errorf("runVerify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !strings.Contains(out.String(), "matches") {
				t.Errorf("output = %q, want confirmation", out.String())
			}
		})
	}
}

func TestRunGenerate(t *testing.T) {
	var out bytes.Buffer
	if err := runGenerate(&out, bcrypt.MinCost); err != nil {
		t.Fatalf("runGenerate() error = %v", err)
	}

	var token, hash string
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		key, value, _ := strings.Cut(line, ":")
		switch key {
		case "Token":
			token = strings.TrimSpace(value)
		case "API_TOKEN_HASH":
			hash = strings.TrimSpace(value)
		}
	}

	if len(token) != generatedTokenBytes*2 {
		t.Errorf("token length = %d, want %d", len(token), generatedTokenBytes*2)
	}
	if err := verifyToken(hash, []byte(token)); err != nil {
		t.Errorf("generated hash does not verify: %v", err)
	}
}
