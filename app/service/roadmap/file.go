package roadmap

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps every item as one JSON line. Each write rewrites the file.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

type fileRecord struct {
	UserID string `json:"userId"`
	Item
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	file, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create roadmap file: %w", err)
	}
	defer file.Close()

	return &FileStore{
		path: path,
	}, nil
}

func (s *FileStore) load() ([]Item, error) {
	file, err := os.OpenFile(s.path, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open roadmap file: %w", err)
	}
	defer file.Close()

	var items []Item

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record fileRecord
		if err = json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("failed to parse JSON line: %w", err)
		}

		record.Item.UserID = record.UserID
		items = append(items, record.Item)
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading roadmap file: %w", err)
	}

	return items, nil
}

func (s *FileStore) save(items []Item) error {
	tmpPath := s.path + ".tmp"

	file, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create/open roadmap file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	for _, item := range items {
		data, err := json.Marshal(fileRecord{UserID: item.UserID, Item: item})
		if err != nil {
			return fmt.Errorf("failed to marshal item: %w", err)
		}
		if _, err = writer.WriteString(string(data) + "\n"); err != nil {
			return fmt.Errorf("failed to write item: %w", err)
		}
	}

	if err = writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf("failed to close roadmap file: %w", err)
	}

	if err = os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace roadmap file: %w", err)
	}

	return nil
}

func (s *FileStore) Create(_ context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}

	return s.save(append(items, item))
}

func (s *FileStore) List(_ context.Context, userID string) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, err := s.load()
	if err != nil {
		return nil, err
	}

	result := make([]Item, 0)
	for _, item := range items {
		if item.UserID == userID {
			result = append(result, item)
		}
	}
	sortNewestFirst(result)

	return result, nil
}

func (s *FileStore) Count(ctx context.Context, userID string) (int, error) {
	items, err := s.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (s *FileStore) Get(_ context.Context, userID, id string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, err := s.load()
	if err != nil {
		return Item{}, err
	}

	for _, item := range items {
		if item.ID == id && ownedBy(&item, userID) {
			return item, nil
		}
	}

	return Item{}, ErrNotFound
}

func (s *FileStore) Update(_ context.Context, userID, id string, mutate func(*Item)) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return Item{}, err
	}

	for i := range items {
		if items[i].ID != id || !ownedBy(&items[i], userID) {
			continue
		}

		mutate(&items[i])
		if err = s.save(items); err != nil {
			return Item{}, err
		}
		return items[i], nil
	}

	return Item{}, ErrNotFound
}

func (s *FileStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}

	for i := range items {
		if items[i].ID == id && ownedBy(&items[i], userID) {
			return s.save(append(items[:i], items[i+1:]...))
		}
	}

	return ErrNotFound
}

func (s *FileStore) Close() error {
	return nil
}
