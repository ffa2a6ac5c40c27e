// Package store files raw response bodies with content-addressed integrity
// metadata. Files are keyed by probe uid rather than digest so duplicate
// content never collides and every raw body survives.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Store writes one body file and one metadata sidecar per probe.
type Store struct {
	dir string
}

// New creates a store rooted at dir. The directory is created on first write.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the raw artifact directory.
func (s *Store) Dir() string { return s.dir }

// Meta is the YAML sidecar written next to each raw body.
type Meta struct {
	UID             string    `yaml:"uid"`
	Timestamp       time.Time `yaml:"timestamp_utc"`
	Group           string    `yaml:"group"`
	Rotation        int       `yaml:"rotation"`
	Model           string    `yaml:"model"`
	SHA256          string    `yaml:"sha256"`
	ReasoningTokens int       `yaml:"reasoning_tokens"`
}

// Sum256 returns the hex SHA-256 digest of b.
func Sum256(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// Sum256Reader returns the hex SHA-256 digest of everything readable from r.
// It must agree byte-for-byte with Sum256 for identical input; the streaming
// path exists for verification of large bodies without loading them whole.
func Sum256Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("store: hashing stream: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// BodyPath returns the raw body file path for a uid.
func (s *Store) BodyPath(uid string) string {
	return filepath.Join(s.dir, uid+"_body.json")
}

// MetaPath returns the metadata sidecar path for a uid.
func (s *Store) MetaPath(uid string) string {
	return filepath.Join(s.dir, uid+"_meta.yaml")
}

// WriteRaw files the raw bytes and sidecar for one probe and returns the
// body path. The digest in meta must already cover body; WriteRaw does not
// recompute it.
func (s *Store) WriteRaw(uid string, body []byte, meta Meta) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("store: create %s: %w", s.dir, err)
	}

	bodyPath := s.BodyPath(uid)
	if err := os.WriteFile(bodyPath, body, 0o644); err != nil {
		return "", fmt.Errorf("store: write body %s: %w", bodyPath, err)
	}

	metaBytes, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("store: marshal meta for %s: %w", uid, err)
	}
	metaPath := s.MetaPath(uid)
	if err := os.WriteFile(metaPath, metaBytes, 0o644); err != nil {
		return "", fmt.Errorf("store: write meta %s: %w", metaPath, err)
	}

	return bodyPath, nil
}

// ReadMeta loads the sidecar for a uid.
func (s *Store) ReadMeta(uid string) (*Meta, error) {
	data, err := os.ReadFile(s.MetaPath(uid))
	if err != nil {
		return nil, fmt.Errorf("store: read meta for %s: %w", uid, err)
	}
	var m Meta
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("store: parse meta for %s: %w", uid, err)
	}
	return &m, nil
}

// VerifyBody re-hashes the raw body for uid and compares it to want.
func (s *Store) VerifyBody(uid, want string) (bool, error) {
	f, err := os.Open(s.BodyPath(uid))
	if err != nil {
		return false, fmt.Errorf("store: open body for %s: %w", uid, err)
	}
	defer f.Close() //nolint:errcheck

	got, err := Sum256Reader(f)
	if err != nil {
		return false, err
	}
	return got == want, nil
}
