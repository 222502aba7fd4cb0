package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/opflow/service/dao"
	"github.com/viant/opflow/service/dao/criteria"
)

// FSStore keeps one JSON document per record under baseURL on any afs
// supported storage (file://, mem://, gs://, s3:// ...).
type FSStore[T any] struct {
	baseURL       string
	fs            afs.Service
	mu            sync.RWMutex
	keySelector   func(*T) string
	stateSelector func(*T) string
}

// NewFSStore creates the base location when missing.
func NewFSStore[T any](ctx context.Context, baseURL string, keySelector func(*T) string, stateSelector func(*T) string) (*FSStore[T], error) {
	if baseURL == "" {
		return nil, fmt.Errorf("fs store: base URL cannot be empty")
	}
	fs := afs.New()
	baseURL = url.Normalize(baseURL, file.Scheme)
	exists, _ := fs.Exists(ctx, baseURL)
	if !exists {
		if err := fs.Create(ctx, baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("fs store: failed to create %v: %w", baseURL, err)
		}
	}
	return &FSStore[T]{
		baseURL:       baseURL,
		fs:            fs,
		keySelector:   keySelector,
		stateSelector: stateSelector,
	}, nil
}

// Save writes the record document, replacing a previous one.
func (s *FSStore[T]) Save(ctx context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	if key == "" {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("fs store: failed to marshal %v: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.recordURL(key)
	if err = s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("fs store: failed to save %v: %w", URL, err)
	}
	return nil
}

func (s *FSStore[T]) Load(ctx context.Context, key string) (*T, error) {
	if key == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	URL := s.recordURL(key)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("fs store: failed to check %v: %w", URL, err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("fs store: failed to read %v: %w", URL, err)
	}
	ret := new(T)
	if err = json.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("fs store: failed to decode %v: %w", URL, err)
	}
	return ret, nil
}

func (s *FSStore[T]) Delete(ctx context.Context, key string) error {
	if key == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.recordURL(key)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("fs store: failed to check %v: %w", URL, err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	return s.fs.Delete(ctx, URL)
}

// List decodes every record document, ordered by key.
func (s *FSStore[T]) List(ctx context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("fs store: failed to list %v: %w", s.baseURL, err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name() < objects[j].Name() })
	var ret []*T
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			return nil, fmt.Errorf("fs store: failed to read %v: %w", object.URL(), err)
		}
		record := new(T)
		if err = json.Unmarshal(data, record); err != nil {
			return nil, fmt.Errorf("fs store: failed to decode %v: %w", object.URL(), err)
		}
		if s.stateSelector != nil && !criteria.FilterByState(s.stateSelector(record), parameters) {
			continue
		}
		ret = append(ret, record)
	}
	return ret, nil
}

func (s *FSStore[T]) recordURL(key string) string {
	return url.Join(s.baseURL, strings.ReplaceAll(key, "/", "_")+".json")
}

var _ dao.Service[string, struct{}] = (*FSStore[struct{}])(nil)
