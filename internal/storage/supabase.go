package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	storage_go "github.com/supabase-community/storage-go"

	"clip-worker/internal/logging"
)

// Supabase stores objects in a Supabase Storage project.
//
// storage_go.Client keeps per-upload headers (content type, upsert) in a
// header map shared with its transport, so a client must never serve two
// uploads at once. Each Upload builds its own client; the shared one is
// only used for URL construction, which reads nothing but the base URL.
type Supabase struct {
	endpoint string
	apiKey   string
	urls     *storage_go.Client
}

// NewSupabase creates a client for the storage API at endpoint, e.g.
// https://<project>.supabase.co/storage/v1, authenticated with apiKey.
func NewSupabase(endpoint, apiKey string) (*Supabase, error) {
	if endpoint == "" {
		return nil, errors.New("storage endpoint is required")
	}
	if apiKey == "" {
		return nil, errors.New("storage api key is required")
	}

	endpoint = strings.TrimRight(endpoint, "/")
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid storage endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid storage endpoint %q: must be an absolute http(s) URL", endpoint)
	}

	s := &Supabase{endpoint: endpoint, apiKey: apiKey}
	s.urls = s.newClient()
	return s, nil
}

func (s *Supabase) newClient() *storage_go.Client {
	return storage_go.NewClient(s.endpoint, s.apiKey, map[string]string{
		"apikey": s.apiKey,
	})
}

// Upload implements Store.
func (s *Supabase) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string, upsert bool) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "upload", Bucket: bucket, Key: key, Err: err}
	}

	opts := storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}

	if _, err := s.newClient().UploadFile(bucket, key, body, opts); err != nil {
		return &Error{Op: "upload", Bucket: bucket, Key: key, Err: err}
	}

	logging.Debug("Uploaded %s/%s (%s)", bucket, key, contentType)
	return nil
}

// PublicURL implements Store.
func (s *Supabase) PublicURL(bucket, key string) string {
	return s.urls.GetPublicUrl(bucket, key).SignedURL
}
