package directory

import (
	"fmt"
	"strings"
	"time"
)

// Kind distinguishes the master-record types the directory mirrors.
type Kind string

const (
	KindCustomer Kind = "customer"
	KindVehicle  Kind = "vehicle"
)

// IsValid returns true if the kind is recognized.
func (k Kind) IsValid() bool {
	return k == KindCustomer || k == KindVehicle
}

// RecordStatus represents the lifecycle state of a mirrored master record.
type RecordStatus string

const (
	RecordStatusActive   RecordStatus = "active"
	RecordStatusArchived RecordStatus = "archived"
)

// UnknownName is displayed when a referenced record cannot be resolved.
const UnknownName = "-"

// Record is a read-only copy of a Customer or Vehicle master record, kept only for
// display-name resolution.
type Record struct {
	kind      Kind
	id        string
	name      string
	status    RecordStatus
	updatedAt time.Time
}

// NewRecord creates an active record with validated fields.
func NewRecord(kind Kind, id, name string, now time.Time) (*Record, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("invalid record kind: %s", kind)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%s id is required", kind)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%s name is required", kind)
	}
	return &Record{
		kind:      kind,
		id:        id,
		name:      name,
		status:    RecordStatusActive,
		updatedAt: now.UTC(),
	}, nil
}

// Reconstruct rebuilds a Record from persistence data (no validation).
func Reconstruct(kind Kind, id, name string, status RecordStatus, updatedAt time.Time) *Record {
	return &Record{kind: kind, id: id, name: name, status: status, updatedAt: updatedAt}
}

// Kind, ID, Name, Status and UpdatedAt expose the record fields.
func (r *Record) Kind() Kind           { return r.kind }
func (r *Record) ID() string           { return r.id }
func (r *Record) Name() string         { return r.name }
func (r *Record) Status() RecordStatus { return r.status }
func (r *Record) UpdatedAt() time.Time { return r.updatedAt }

// IsActive reports whether the record is offered in option lists.
func (r *Record) IsActive() bool { return r.status == RecordStatusActive }

// Archive hides the record from option lists. Its name still resolves for existing bookings.
func (r *Record) Archive(now time.Time) {
	r.status = RecordStatusArchived
	r.updatedAt = now.UTC()
}
