package middleware

import (
	"bytes"
	"compress/gzip"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"clip-worker/internal/logging"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// Prefixes limits compression to requests under these paths
	Prefixes []string
	// MinSize is the minimum response size in bytes before compression is applied
	MinSize int
	// Level is the gzip compression level (gzip.BestSpeed to gzip.BestCompression)
	Level int
}

// DefaultCompressionConfig compresses job history listings. Pipeline and
// probe responses are a few dozen bytes and pass through untouched.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		Prefixes: []string{"/api/"},
		MinSize:  1024,
		Level:    gzip.DefaultCompression,
	}
}

// bufferedResponse holds a complete response until the handler returns.
// The responses it serves are bounded JSON documents.
type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (b *bufferedResponse) Header() http.Header {
	return b.header
}

func (b *bufferedResponse) WriteHeader(code int) {
	if b.status == 0 {
		b.status = code
	}
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedResponse) compressible(minSize int) bool {
	if b.body.Len() < minSize || b.header.Get("Content-Encoding") != "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(b.header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// writeTo copies the buffered response to w, gzipped when worthwhile.
func (b *bufferedResponse) writeTo(w http.ResponseWriter, config CompressionConfig) {
	dst := w.Header()
	for k, v := range b.header {
		dst[k] = v
	}
	dst.Add("Vary", "Accept-Encoding")

	status := b.status
	if status == 0 {
		status = http.StatusOK
	}

	body := b.body.Bytes()
	if b.compressible(config.MinSize) {
		if gz, err := gzipBytes(body, config.Level); err != nil {
			logging.Debug("gzip failed, sending uncompressed: %v", err)
		} else {
			body = gz
			dst.Set("Content-Encoding", "gzip")
		}
	}
	dst.Set("Content-Length", strconv.Itoa(len(body)))

	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Debug("response write failed: %v", err)
	}
}

func gzipBytes(p []byte, level int) ([]byte, error) {
	var out bytes.Buffer
	zw, err := gzip.NewWriterLevel(&out, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(p); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// acceptsGzip reports whether the Accept-Encoding header allows gzip.
func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(coding), "gzip") {
			continue
		}
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if v, err := strconv.ParseFloat(q, 64); err == nil && v == 0 {
				return false
			}
		}
		return true
	}
	return false
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Compression returns a middleware that gzips JSON responses under the
// configured prefixes.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || !hasPrefix(r.URL.Path, config.Prefixes) ||
				!acceptsGzip(r.Header.Get("Accept-Encoding")) {
				next.ServeHTTP(w, r)
				return
			}

			buf := &bufferedResponse{header: make(http.Header)}
			next.ServeHTTP(buf, r)
			buf.writeTo(w, config)
		})
	}
}
