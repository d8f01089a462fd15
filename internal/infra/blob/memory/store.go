// Package memory implements an in-memory artifact Store, used by tests and
// by deck publishing smoke runs that must not touch disk.
package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"flowdeck/internal/blob/core"
)

// Store implements core.Store backed by a map. Every returned Info and
// payload is a copy, so callers can never mutate stored state.
type Store struct {
	mu      sync.RWMutex
	objects map[string]entry
}

type entry struct {
	info core.Info
	data []byte
}

func New() *Store { return &Store{objects: make(map[string]entry)} }

func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Put stores a new artifact under key. Like the other drivers it is
// create-only; the payload digest becomes the ETag.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	sum := sha256.Sum256(data)
	info := core.Info{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  opts.ContentType,
		ETag:         hex.EncodeToString(sum[:]),
		Metadata:     maps.Clone(opts.Metadata),
		LastModified: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key]; exists {
		return core.Info{}, fmt.Errorf("artifact %s already exists", key)
	}
	s.objects[key] = entry{info: info, data: data}
	return copyInfo(info), nil
}

func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	e, ok := s.lookup(key)
	if !ok {
		return core.Info{}, nil, fmt.Errorf("artifact %s not found", key)
	}
	return copyInfo(e.info), io.NopCloser(bytes.NewReader(bytes.Clone(e.data))), nil
}

func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	e, ok := s.lookup(key)
	if !ok {
		return core.Info{}, fmt.Errorf("artifact %s not found", key)
	}
	return copyInfo(e.info), nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return false, nil
	}
	delete(s.objects, key)
	return true, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]core.Info, 0, len(s.objects))
	for key, e := range s.objects {
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}
		infos = append(infos, copyInfo(e.info))
	}
	slices.SortFunc(infos, func(a, b core.Info) int { return strings.Compare(a.Key, b.Key) })
	return infos, nil
}

// PresignURL is unsupported: memory artifacts have no address outside the
// process.
func (s *Store) PresignURL(context.Context, string, core.SignedURLOptions) (string, error) {
	return "", core.ErrUnsupported
}

func (s *Store) lookup(key string) (entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.objects[key]
	return e, ok
}

func copyInfo(info core.Info) core.Info {
	info.Metadata = maps.Clone(info.Metadata)
	return info
}
