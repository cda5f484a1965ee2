package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"tenant-validation/internal/shared/storage/object"
	"tenant-validation/internal/shared/telemetry"
)

// Service stores uploads and resolves an owner's current document set.
type Service struct {
	Store      object.Store
	Repo       Repo
	Classifier *Classifier
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Upload saves the blob, records the document and, for singular roles,
// supersedes the previous holder of the role. Old blobs are deleted only
// after the new row exists.
func (s *Service) Upload(ctx context.Context, ownerID, typeTag, fileName string, r io.Reader) (Document, error) {
	ownerID = strings.TrimSpace(ownerID)
	typeTag = strings.TrimSpace(typeTag)
	if ownerID == "" || typeTag == "" || strings.TrimSpace(fileName) == "" {
		return Document{}, ErrInvalidInput
	}

	role := s.Classifier.RoleFor(typeTag)
	var previous []Document
	if role.Singular() {
		current, err := s.Repo.ListCurrent(ctx, ownerID)
		if err != nil {
			return Document{}, err
		}
		for _, doc := range current {
			if s.Classifier.RoleFor(doc.TypeTag) == role {
				previous = append(previous, doc)
			}
		}
	}

	stored, err := s.Store.Save(ctx, ownerID, fileName, r)
	if err != nil {
		if errors.Is(err, object.ErrInvalidFileName) {
			return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return Document{}, fmt.Errorf("store document: %w", err)
	}

	doc := Document{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Role:       role,
		TypeTag:    typeTag,
		FileName:   fileName,
		StorageKey: stored.Key,
		MimeType:   stored.MimeType,
		SizeBytes:  stored.SizeBytes,
		CreatedAt:  s.now(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		if delErr := s.Store.Delete(ctx, stored.Key); delErr != nil {
			telemetry.Warn("documents.cleanup_failed", map[string]any{
				"owner_id": ownerID,
				"key":      stored.Key,
				"error":    delErr.Error(),
			})
		}
		return Document{}, err
	}

	for _, old := range previous {
		if err := s.Repo.Supersede(ctx, ownerID, old.ID, doc.CreatedAt); err != nil {
			return doc, fmt.Errorf("supersede %s: %w", old.ID, err)
		}
		if err := s.Store.Delete(ctx, old.StorageKey); err != nil {
			telemetry.Warn("documents.old_blob_delete_failed", map[string]any{
				"owner_id":    ownerID,
				"document_id": old.ID,
				"error":       err.Error(),
			})
		}
	}

	telemetry.Info("documents.uploaded", map[string]any{
		"owner_id":    ownerID,
		"document_id": doc.ID,
		"role":        string(role),
		"replaced":    len(previous),
		"size_bytes":  doc.SizeBytes,
	})
	return doc, nil
}

// List returns the owner's current documents with roles resolved.
func (s *Service) List(ctx context.Context, ownerID string) ([]Document, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrInvalidInput
	}
	docs, err := s.Repo.ListCurrent(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].Role = s.Classifier.RoleFor(docs[i].TypeTag)
	}
	return docs, nil
}

// Current classifies the owner's current documents.
func (s *Service) Current(ctx context.Context, ownerID string) (Classified, error) {
	docs, err := s.List(ctx, ownerID)
	if err != nil {
		return Classified{}, err
	}
	return s.Classifier.Classify(docs), nil
}
