// Package meta loads YAML or JSON documents from any afs supported location
// into Go values, expanding ${env.KEY} expressions first.
package meta

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

type Service struct {
	fs     afs.Service
	lookup func(string) (string, bool)
}

type Option func(s *Service)

// WithFS sets the file system used to download documents.
func WithFS(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// WithLookup replaces the environment lookup.
func WithLookup(lookup func(string) (string, bool)) Option {
	return func(s *Service) {
		s.lookup = lookup
	}
}

func New(options ...Option) *Service {
	ret := &Service{lookup: osLookup}
	for _, opt := range options {
		opt(ret)
	}
	if ret.fs == nil {
		ret.fs = afs.New()
	}
	return ret
}

// Load decodes the document at URL into target.  Fields absent from the
// document keep their current values.
func (s *Service) Load(ctx context.Context, URL string, target interface{}) error {
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to download %v: %w", URL, err)
	}
	return s.Decode(data, target)
}

// Decode expands environment expressions in data and decodes it.
func (s *Service) Decode(data []byte, target interface{}) error {
	expanded := expandEnv(string(data), s.lookup)
	if err := yaml.Unmarshal([]byte(expanded), target); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}
