package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"decision-server/internal/model"
)

// SessionRepository хранит плоские снимки сессий.
// Get возвращает model.ErrSessionNotFound, если снимка нет.
type SessionRepository interface {
	Save(ctx context.Context, s *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	Delete(ctx context.Context, id string) error
}

func encodeSnapshot(s *model.Session) ([]byte, error) {
	if s == nil || s.ID == "" {
		return nil, fmt.Errorf("cannot store session without id")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session %s: %w", s.ID, err)
	}
	return data, nil
}

func decodeSnapshot(id string, data []byte) (*model.Session, error) {
	var s model.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	s.Relink()
	return &s, nil
}
