package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"decision-server/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ SessionRepository = (*fileSessionRepository)(nil)

// fileSessionRepository пишет каждый снимок в <dir>/<id>.json.
type fileSessionRepository struct {
	dir    string
	logger *zap.Logger
}

// NewFileSessionRepository создаёт каталог при необходимости.
func NewFileSessionRepository(dir string, logger *zap.Logger) (SessionRepository, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create session dir %s: %w", dir, err)
	}
	return &fileSessionRepository{dir: dir, logger: logger.Named("FileSessionRepo")}, nil
}

// path допускает только UUID в качестве id, чтобы имя файла нельзя было подменить.
func (r *fileSessionRepository) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: invalid session id %q", model.ErrSessionNotFound, id)
	}
	return filepath.Join(r.dir, id+".json"), nil
}

func (r *fileSessionRepository) Save(_ context.Context, s *model.Session) error {
	data, err := encodeSnapshot(s)
	if err != nil {
		return err
	}
	target, err := r.path(s.ID)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.dir, s.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot %s: %w", s.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot %s: %w", s.ID, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move snapshot %s into place: %w", s.ID, err)
	}
	r.logger.Debug("Session snapshot saved", zap.String("session_id", s.ID), zap.Int("bytes", len(data)))
	return nil
}

func (r *fileSessionRepository) Get(_ context.Context, id string) (*model.Session, error) {
	p, err := r.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", id, err)
	}
	return decodeSnapshot(id, data)
}

func (r *fileSessionRepository) Delete(_ context.Context, id string) error {
	p, err := r.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete snapshot %s: %w", id, err)
	}
	return nil
}
