package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/ChorusOne/anthem-sub001/internal/domain"
)

// LoadFile reads a history document from a JSON file.
// The document may be the bare input object or wrapped in a {"data": ...} envelope.
func LoadFile(path string) (domain.HistoryInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.HistoryInput{}, fmt.Errorf("reading history file: %w", err)
	}
	input, err := Decode(data)
	if err != nil {
		return domain.HistoryInput{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return input, nil
}

// Decode parses a history document.
func Decode(data []byte) (domain.HistoryInput, error) {
	var envelope struct {
		Data *domain.HistoryInput `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return domain.HistoryInput{}, err
	}
	if envelope.Data != nil {
		return *envelope.Data, nil
	}

	var input domain.HistoryInput
	if err := json.Unmarshal(data, &input); err != nil {
		return domain.HistoryInput{}, err
	}
	return input, nil
}

// DirRepository serves history documents stored as <dir>/<address>.json.
// SaveHistory replaces the whole document.
type DirRepository struct {
	dir string
}

// NewDirRepository creates a DirRepository rooted at dir.
func NewDirRepository(dir string) *DirRepository {
	return &DirRepository{dir: dir}
}

func (r *DirRepository) path(address string) string {
	return filepath.Join(r.dir, filepath.Base(address)+".json")
}

// LoadHistory reads the document for address. A missing file is ErrNotFound.
func (r *DirRepository) LoadHistory(_ context.Context, address string) (domain.HistoryInput, error) {
	input, err := LoadFile(r.path(address))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.HistoryInput{}, fmt.Errorf("%w: %s", ErrNotFound, address)
	}
	if err != nil {
		return domain.HistoryInput{}, err
	}
	if input.Address == "" {
		input.Address = address
	}
	return input, nil
}

// SaveHistory writes input to <dir>/<address>.json.
func (r *DirRepository) SaveHistory(_ context.Context, input domain.HistoryInput) error {
	if input.Address == "" {
		return errors.New("saving history: address is required")
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("creating history dir: %w", err)
	}
	data, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	if err := os.WriteFile(r.path(input.Address), data, 0o644); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return nil
}

// ListAddresses returns the addresses of every document in the directory, sorted.
func (r *DirRepository) ListAddresses(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("listing history dir: %w", err)
	}
	addresses := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			return "", false
		}
		return strings.TrimSuffix(e.Name(), ".json"), true
	})
	slices.Sort(addresses)
	return addresses, nil
}
