package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rentfleet/service-rental-booking/internal/common/domain"
	"github.com/rentfleet/service-rental-booking/internal/domain/directory"
)

type directoryKey struct {
	kind directory.Kind
	id   string
}

// MemoryDirectoryRepository keeps directory records in process memory.
type MemoryDirectoryRepository struct {
	mu      sync.RWMutex
	records map[directoryKey]*directory.Record
}

// NewMemoryDirectoryRepository creates an empty MemoryDirectoryRepository.
func NewMemoryDirectoryRepository() *MemoryDirectoryRepository {
	return &MemoryDirectoryRepository{records: make(map[directoryKey]*directory.Record)}
}

// ResolveCustomerName returns the name of a customer, archived or not.
func (r *MemoryDirectoryRepository) ResolveCustomerName(ctx context.Context, id string) (string, error) {
	return r.resolveName(directory.KindCustomer, id)
}

// ResolveVehicleName returns the name of a vehicle, archived or not.
func (r *MemoryDirectoryRepository) ResolveVehicleName(ctx context.Context, id string) (string, error) {
	return r.resolveName(directory.KindVehicle, id)
}

func (r *MemoryDirectoryRepository) resolveName(kind directory.Kind, id string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[directoryKey{kind: kind, id: id}]
	if !ok {
		return "", domain.NewNotFoundError(resourceName(kind), id)
	}
	return rec.Name(), nil
}

// ListActive returns the active records of a kind ordered by name, then id.
func (r *MemoryDirectoryRepository) ListActive(_ context.Context, kind directory.Kind) ([]*directory.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*directory.Record{}
	for key, rec := range r.records {
		if key.kind == kind && rec.IsActive() {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name() == out[j].Name() {
			return out[i].ID() < out[j].ID()
		}
		return out[i].Name() < out[j].Name()
	})
	return out, nil
}

// Upsert inserts or replaces a record.
func (r *MemoryDirectoryRepository) Upsert(_ context.Context, record *directory.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[directoryKey{kind: record.Kind(), id: record.ID()}] = copyRecord(record)
	return nil
}

// Archive marks a record archived. Unknown ids are ignored.
func (r *MemoryDirectoryRepository) Archive(_ context.Context, kind directory.Kind, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[directoryKey{kind: kind, id: id}]; ok {
		rec.Archive(time.Now())
	}
	return nil
}

func copyRecord(rec *directory.Record) *directory.Record {
	return directory.Reconstruct(rec.Kind(), rec.ID(), rec.Name(), rec.Status(), rec.UpdatedAt())
}
