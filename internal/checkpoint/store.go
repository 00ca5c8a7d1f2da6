// Package checkpoint persists conversations between turns, keyed by thread id.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/vigneshmj1997/CodingAgent/internal/models"
)

// ErrNotFound is returned by Load for an unknown thread.
var ErrNotFound = errors.New("checkpoint not found")

// Store saves and restores conversations.
type Store interface {
	Load(ctx context.Context, threadID string) (models.Conversation, error)
	Save(ctx context.Context, conv models.Conversation) error
}

// MemoryStore keeps conversations for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]models.Conversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string]models.Conversation)}
}

func (s *MemoryStore) Load(ctx context.Context, threadID string) (models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[threadID]
	if !ok {
		return models.Conversation{}, fmt.Errorf("%w: %s", ErrNotFound, threadID)
	}
	return conv.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, conv models.Conversation) error {
	if conv.ThreadID == "" {
		return errors.New("conversation has no thread id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[conv.ThreadID] = conv.Clone()
	return nil
}

var unsafeThreadChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileStore writes one JSON document per thread into a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(threadID string) string {
	return filepath.Join(s.dir, unsafeThreadChars.ReplaceAllString(threadID, "_")+".json")
}

func (s *FileStore) Load(ctx context.Context, threadID string) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(threadID))
	if errors.Is(err, os.ErrNotExist) {
		return models.Conversation{}, fmt.Errorf("%w: %s", ErrNotFound, threadID)
	}
	if err != nil {
		return models.Conversation{}, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var conv models.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return models.Conversation{}, fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	return conv, nil
}

// Save writes through a temporary file so a crash never leaves a torn
// checkpoint behind.
func (s *FileStore) Save(ctx context.Context, conv models.Conversation) error {
	if conv.ThreadID == "" {
		return errors.New("conversation has no thread id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(conv.ThreadID)
	tmp, err := os.CreateTemp(s.dir, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}
