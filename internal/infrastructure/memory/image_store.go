package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/media"
)

// ImageStore keeps uploads in memory and serves them under BaseURL.
type ImageStore struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string][]byte
	seq     int
}

func NewImageStore(baseURL string) *ImageStore {
	return &ImageStore{BaseURL: baseURL, objects: make(map[string][]byte)}
}

func (s *ImageStore) Upload(ctx context.Context, folder string, u media.Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if u.Body == nil {
		return "", media.ErrEmptyUpload
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, u.Body); err != nil {
		return "", fmt.Errorf("image store: read upload: %w", err)
	}
	if buf.Len() == 0 {
		return "", media.ErrEmptyUpload
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	key := path.Join(folder, fmt.Sprintf("%d-%s", s.seq, path.Base(u.Filename)))
	s.objects[key] = buf.Bytes()
	return s.BaseURL + "/" + key, nil
}

// Object returns a stored upload by key.
func (s *ImageStore) Object(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.objects[key]
	return b, ok
}

// ServeHTTP serves stored uploads by key. Mount it under the path of BaseURL.
func (s *ImageStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, ok := s.Object(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(b))
	_, _ = w.Write(b)
}
