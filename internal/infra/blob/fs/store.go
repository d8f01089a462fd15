// Package fs implements the artifact store on a local directory, the default
// backend for published decks during development.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"flowdeck/internal/blob/core"
)

const (
	defaultRoot = "./deckdata"
	objectsDir  = "objects"
	metaDir     = "meta"
)

// Store implements core.Store on the local filesystem. Deck payloads live
// under <root>/objects keyed by their artifact key; a JSON sidecar under
// <root>/meta carries content type, user metadata and the payload digest.
// Keys are create-only, so writers never race on an existing object.
type Store struct {
	root string
}

// New roots a store at path, creating both directory trees if needed. An
// empty root selects ./deckdata.
func New(root string) (*Store, error) {
	if root == "" {
		root = defaultRoot
	}
	for _, dir := range []string{objectsDir, metaDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, err
		}
	}
	return &Store{root: root}, nil
}

func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

// cleanKey normalizes key and rejects anything that could escape the store
// root.
func cleanKey(key string) (string, error) {
	k := strings.TrimSpace(key)
	switch {
	case k == "":
		return "", errors.New("empty key")
	case strings.HasPrefix(k, "/"):
		return "", fmt.Errorf("absolute key %q", key)
	case strings.Contains(k, ".."):
		return "", fmt.Errorf("key %q escapes the store root", key)
	}
	return filepath.ToSlash(filepath.Clean(k)), nil
}

func (s *Store) objectPath(key string) string {
	return filepath.Join(s.root, objectsDir, filepath.FromSlash(key))
}

func (s *Store) sidecarPath(key string) string {
	return filepath.Join(s.root, metaDir, filepath.FromSlash(key)+".json")
}

type sidecar struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ETag        string            `json:"etag"`
	Size        int64             `json:"size_bytes"`
	StoredAt    time.Time         `json:"stored_at"`
}

func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	k, err := cleanKey(key)
	if err != nil {
		return core.Info{}, err
	}
	object := s.objectPath(k)
	if _, err := os.Stat(object); err == nil {
		return core.Info{}, fmt.Errorf("artifact %s already exists", k)
	}
	if err := os.MkdirAll(filepath.Dir(object), 0o755); err != nil {
		return core.Info{}, err
	}

	// Stream through a temp file so the object appears atomically with a
	// complete digest.
	tmp, err := os.CreateTemp(filepath.Dir(object), ".put-*")
	if err != nil {
		return core.Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	digest := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, digest), r)
	if err != nil {
		_ = tmp.Close()
		return core.Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return core.Info{}, err
	}
	if err := os.Rename(tmp.Name(), object); err != nil {
		return core.Info{}, err
	}

	sc := sidecar{
		ContentType: opts.ContentType,
		Metadata:    maps.Clone(opts.Metadata),
		ETag:        hex.EncodeToString(digest.Sum(nil)),
		Size:        size,
		StoredAt:    time.Now().UTC(),
	}
	if err := s.writeSidecar(k, sc); err != nil {
		return core.Info{}, err
	}
	return s.infoFor(k, sc), nil
}

func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	k, err := cleanKey(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	sc, err := s.readSidecar(k)
	if err != nil {
		return core.Info{}, nil, err
	}
	file, err := os.Open(s.objectPath(k))
	if err != nil {
		return core.Info{}, nil, err
	}
	return s.infoFor(k, sc), file, nil
}

func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	k, err := cleanKey(key)
	if err != nil {
		return core.Info{}, err
	}
	sc, err := s.readSidecar(k)
	if err != nil {
		return core.Info{}, err
	}
	return s.infoFor(k, sc), nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	k, err := cleanKey(key)
	if err != nil {
		return false, err
	}
	object := s.objectPath(k)
	if _, err := os.Stat(object); errors.Is(err, iofs.ErrNotExist) {
		return false, nil
	}
	if err := os.Remove(object); err != nil {
		return false, err
	}
	_ = os.Remove(s.sidecarPath(k))
	return true, nil
}

// List walks the sidecar tree, so only artifacts with intact metadata are
// reported.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	metaRoot := filepath.Join(s.root, metaDir)
	var infos []core.Info
	err := filepath.WalkDir(metaRoot, func(path string, d iofs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(metaRoot, path)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(filepath.ToSlash(rel), ".json")
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		sc, err := s.readSidecar(key)
		if err != nil {
			return err
		}
		infos = append(infos, s.infoFor(key, sc))
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(infos, func(a, b core.Info) int { return strings.Compare(a.Key, b.Key) })
	return infos, nil
}

// PresignURL returns a stable pseudo URL for local development. Only GET is
// served on this driver.
func (s *Store) PresignURL(_ context.Context, key string, opts core.SignedURLOptions) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if opts.Method != "" && !strings.EqualFold(opts.Method, "GET") {
		return "", core.ErrUnsupported
	}
	return s.localURL(k), nil
}

func (s *Store) infoFor(key string, sc sidecar) core.Info {
	return core.Info{
		Key:          key,
		Size:         sc.Size,
		ContentType:  sc.ContentType,
		ETag:         sc.ETag,
		Metadata:     maps.Clone(sc.Metadata),
		LastModified: sc.StoredAt,
		URL:          s.localURL(key),
	}
}

func (s *Store) localURL(key string) string {
	return (&url.URL{Scheme: "http", Host: "local.deck", Path: "/" + key}).String()
}

func (s *Store) writeSidecar(key string, sc sidecar) error {
	path := s.sidecarPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := jsonMarshal(sc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func (s *Store) readSidecar(key string) (sidecar, error) {
	b, err := os.ReadFile(s.sidecarPath(key))
	if err != nil {
		return sidecar{}, err
	}
	var sc sidecar
	if err := json.Unmarshal(b, &sc); err != nil {
		return sidecar{}, fmt.Errorf("decode sidecar for %s: %w", key, err)
	}
	return sc, nil
}

// jsonMarshal is swappable so tests can force encode failures.
var jsonMarshal = func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }
