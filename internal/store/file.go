package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/suteetoe/storefront/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FileCollection keeps a collection as a JSON array in <dir>/<name>.json.
// Every operation reads the whole file; writes replace it atomically through a
// temp file and rename. The mutex serializes read-modify-write cycles within the
// process, which removes lost updates between concurrent requests.
type FileCollection[T Record] struct {
	path string
	mu   sync.Mutex
}

// NewFileCollection creates dir if needed and returns the collection stored in it
func NewFileCollection[T Record](dir, name string) (*FileCollection[T], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileCollection[T]{path: filepath.Join(dir, name+".json")}, nil
}

// NewFileStores opens the users, orders and carts collections under dir
func NewFileStores(dir string) (*Stores, error) {
	users, err := NewFileCollection[model.User](dir, CollectionUsers)
	if err != nil {
		return nil, err
	}
	orders, err := NewFileCollection[model.Order](dir, CollectionOrders)
	if err != nil {
		return nil, err
	}
	carts, err := NewFileCollection[model.Cart](dir, CollectionCarts)
	if err != nil {
		return nil, err
	}

	return &Stores{
		Users:  instrument[model.User](CollectionUsers, users),
		Orders: instrument[model.Order](CollectionOrders, orders),
		Carts:  instrument[model.Cart](CollectionCarts, carts),
	}, nil
}

func (f *FileCollection[T]) load() ([]T, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return []T{}, nil
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", f.path, err)
	}
	return records, nil
}

func (f *FileCollection[T]) save(records []T) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", f.path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}

// Get implements Collection
func (f *FileCollection[T]) Get(ctx context.Context, id string) (T, bool, error) {
	return f.Find(ctx, func(r T) bool { return r.RecordID() == id })
}

// Find implements Collection
func (f *FileCollection[T]) Find(ctx context.Context, pred func(T) bool) (T, bool, error) {
	var zero T
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		return zero, false, err
	}
	pred = matchAll(pred)
	for _, r := range records {
		if pred(r) {
			return r, true, nil
		}
	}
	return zero, false, nil
}

// List implements Collection
func (f *FileCollection[T]) List(ctx context.Context, pred func(T) bool) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		return nil, err
	}
	pred = matchAll(pred)
	out := make([]T, 0, len(records))
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Insert implements Collection
func (f *FileCollection[T]) Insert(ctx context.Context, record T) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		return err
	}
	key := uniqueKeyOf(record)
	for _, r := range records {
		if r.RecordID() == record.RecordID() {
			return ErrDuplicate
		}
		if key != "" && uniqueKeyOf(r) == key {
			return ErrDuplicate
		}
	}
	return f.save(append(records, record))
}

// Update implements Collection
func (f *FileCollection[T]) Update(ctx context.Context, id string, patch func(*T)) (T, bool, error) {
	var zero T
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		return zero, false, err
	}
	for i := range records {
		if records[i].RecordID() != id {
			continue
		}
		patch(&records[i])
		if key := uniqueKeyOf(records[i]); key != "" {
			for j, r := range records {
				if j != i && uniqueKeyOf(r) == key {
					return zero, false, ErrDuplicate
				}
			}
		}
		if err := f.save(records); err != nil {
			return zero, false, err
		}
		return records[i], true, nil
	}
	return zero, false, nil
}

// Delete implements Collection
func (f *FileCollection[T]) Delete(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		return false, err
	}
	for i, r := range records {
		if r.RecordID() != id {
			continue
		}
		if err := f.save(append(records[:i], records[i+1:]...)); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}
