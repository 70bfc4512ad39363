package main

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

const (
	// Minimum accepted token length
	minTokenLength = 16
	// Random bytes used by the generate command
	generatedTokenBytes = 32
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	in := newSecretReader(os.Stdin)

	var err error
	switch command {
	case "generate":
		err = runGenerate(os.Stdout, hashCost())
	case "hash":
		err = runHash(in, os.Stdout, hashCost())
	case "verify":
		err = runVerify(in, os.Stdout, os.Getenv("API_TOKEN_HASH"))
	default:
		// Sanitize command input using allowlist to break taint chain
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// sanitizeCommand returns a safe representation of a command string for display.
// It uses an allowlist approach, replacing any character that is not alphanumeric,
// a hyphen, or an underscore with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage() {
	fmt.Println("Clip Worker API Token Utility")
	fmt.Println("")
	fmt.Println("Usage: hashtoken <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  generate - Create a random token and print its hash")
	fmt.Println("  hash     - Hash a token read from stdin")
	fmt.Println("  verify   - Check a token against API_TOKEN_HASH")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Println("  API_TOKEN_HASH - Hash used by verify")
	fmt.Printf("  HASH_COST      - bcrypt cost (default: %d)\n", bcrypt.DefaultCost)
}

// hashCost reads HASH_COST, falling back to bcrypt.DefaultCost for unset
// or out-of-range values.
func hashCost() int {
	v := os.Getenv("HASH_COST")
	if v == "" {
		return bcrypt.DefaultCost
	}
	cost, err := strconv.Atoi(v)
	if err != nil || cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		fmt.Fprintf(os.Stderr, "Warning: invalid HASH_COST %q, using %d\n", v, bcrypt.DefaultCost)
		return bcrypt.DefaultCost
	}
	return cost
}

// secretReader reads tokens without echo from a terminal, or line by line
// from piped input.
type secretReader struct {
	fd       int
	terminal bool
	lines    *bufio.Reader
	prompts  io.Writer
}

func newSecretReader(f *os.File) *secretReader {
	fd := int(f.Fd()) //nolint:gosec // G115 - file descriptors fit in int
	return &secretReader{
		fd:       fd,
		terminal: term.IsTerminal(fd),
		lines:    bufio.NewReader(f),
		prompts:  os.Stderr,
	}
}

func (s *secretReader) read(prompt string) ([]byte, error) {
	if !s.terminal {
		line, err := s.lines.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, fmt.Errorf("failed to read token: %w", err)
		}
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}

	fmt.Fprint(s.prompts, prompt)
	secret, err := term.ReadPassword(s.fd)
	fmt.Fprintln(s.prompts)
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	return secret, nil
}

type reader interface {
	read(prompt string) ([]byte, error)
}

func runGenerate(out io.Writer, cost int) error {
	buf := make([]byte, generatedTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	token := []byte(hex.EncodeToString(buf))

	hash, err := hashToken(token, cost)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Token:          %s\n", token)
	fmt.Fprintf(out, "API_TOKEN_HASH: %s\n", hash)
	return nil
}

func runHash(in reader, out io.Writer, cost int) error {
	token, err := in.read("Token: ")
	if err != nil {
		return err
	}

	// Piped input is read once; there is nobody to retype it.
	if sr, ok := in.(*secretReader); !ok || sr.terminal {
		confirm, err := in.read("Confirm Token: ")
		if err != nil {
			return err
		}
		if !bytes.Equal(token, confirm) {
			return errors.New("tokens do not match")
		}
	}

	if err := validateToken(token); err != nil {
		return err
	}

	hash, err := hashToken(token, cost)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, hash)
	return nil
}

func runVerify(in reader, out io.Writer, hash string) error {
	if hash == "" {
		return errors.New("API_TOKEN_HASH is not set")
	}

	token, err := in.read("Token: ")
	if err != nil {
		return err
	}

	if err := verifyToken(hash, token); err != nil {
		return err
	}
	fmt.Fprintln(out, "Token matches API_TOKEN_HASH.")
	return nil
}

func validateToken(token []byte) error {
	if len(bytes.TrimSpace(token)) != len(token) {
		return errors.New("token must not start or end with whitespace")
	}
	if len(token) < minTokenLength {
		return fmt.Errorf("token must be at least %d characters", minTokenLength)
	}
	// bcrypt only looks at the first 72 bytes
	if len(token) > 72 {
		return errors.New("token must be at most 72 bytes")
	}
	return nil
}

func hashToken(token []byte, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(token, cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hash), nil
}

func verifyToken(hash string, token []byte) error {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return fmt.Errorf("API_TOKEN_HASH is not a bcrypt hash: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), token); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return errors.New("token does not match API_TOKEN_HASH")
		}
		return fmt.Errorf("failed to verify token: %w", err)
	}
	return nil
}
