// Package materials handles document uploads: the raw bytes go to blob
// storage, metadata to the database, and the decoded text into a
// retrieval index that becomes the active one.
package materials

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/abhisek/eduassist/internal/blob"
	"github.com/abhisek/eduassist/internal/rag"
	"github.com/abhisek/eduassist/internal/store"
)

var (
	// ErrNotText means the upload is not valid UTF-8.
	ErrNotText = errors.New("file is not UTF-8 text")
	// ErrInvalidFilename means the name is empty or has path components.
	ErrInvalidFilename = errors.New("invalid filename")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Result describes a processed upload.
type Result struct {
	Filename   string `json:"filename"`
	DocumentID string `json:"document_id"`
	StorageRef string `json:"storage_ref"`
	Chunks     int    `json:"chunks"`
}

// Service runs the upload flow.
type Service struct {
	blobs    blob.Store
	repo     store.MaterialRepo
	builder  *rag.Builder
	registry *rag.Registry
	now      func() time.Time
}

func NewService(blobs blob.Store, repo store.MaterialRepo, builder *rag.Builder, registry *rag.Registry) *Service {
	return &Service{
		blobs:    blobs,
		repo:     repo,
		builder:  builder,
		registry: registry,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Upload stores data under filename, records it, and indexes its text.
// The new index replaces the active one. Any failure is returned.
func (s *Service) Upload(ctx context.Context, filename string, data []byte) (*Result, error) {
	filename = strings.TrimSpace(filename)
	if !blob.ValidName(filename) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	ref, err := s.blobs.Put(ctx, filename, data)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	docID := uuid.NewString()
	m := &store.Material{
		Filename:   filename,
		StorageRef: ref,
		DocumentID: docID,
		SizeBytes:  int64(len(data)),
		CreatedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("record upload: %w", err)
	}

	text, err := decode(data)
	if err != nil {
		return nil, err
	}

	ix, err := s.builder.BuildID(ctx, docID, filename, text)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", filename, err)
	}
	s.registry.Put(ix)
	slog.Info("indexed material", "filename", filename, "document_id", docID, "chunks", ix.Chunks)

	return &Result{
		Filename:   filename,
		DocumentID: docID,
		StorageRef: ref,
		Chunks:     ix.Chunks,
	}, nil
}

// List returns recorded uploads, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]store.Material, error) {
	ms, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	if ms == nil {
		ms = []store.Material{}
	}
	return ms, nil
}

func decode(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", ErrNotText
	}
	return string(data), nil
}
