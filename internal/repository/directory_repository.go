package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rentfleet/service-rental-booking/internal/common/domain"
	"github.com/rentfleet/service-rental-booking/internal/domain/directory"
)

// DirectoryRecordModel is the GORM model for the directory_records table.
type DirectoryRecordModel struct {
	Kind      string    `gorm:"type:varchar(20);primaryKey"`
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Status    string    `gorm:"type:varchar(20);not null;default:'active'"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for the GORM model.
func (DirectoryRecordModel) TableName() string { return "directory_records" }

// GormDirectoryRepository implements directory.Directory using GORM.
type GormDirectoryRepository struct {
	db *gorm.DB
}

// NewGormDirectoryRepository creates a new GormDirectoryRepository.
func NewGormDirectoryRepository(db *gorm.DB) *GormDirectoryRepository {
	return &GormDirectoryRepository{db: db}
}

// ResolveCustomerName returns the name of a customer, archived or not.
func (r *GormDirectoryRepository) ResolveCustomerName(ctx context.Context, id string) (string, error) {
	return r.resolveName(ctx, directory.KindCustomer, id)
}

// ResolveVehicleName returns the name of a vehicle, archived or not.
func (r *GormDirectoryRepository) ResolveVehicleName(ctx context.Context, id string) (string, error) {
	return r.resolveName(ctx, directory.KindVehicle, id)
}

func (r *GormDirectoryRepository) resolveName(ctx context.Context, kind directory.Kind, id string) (string, error) {
	var model DirectoryRecordModel
	if err := r.db.WithContext(ctx).
		Where("kind = ? AND id = ?", string(kind), id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.NewNotFoundError(resourceName(kind), id)
		}
		return "", domain.NewUnavailableError("resolve "+string(kind), err)
	}
	return model.Name, nil
}

// ListActive returns the active records of a kind ordered by name, then id.
func (r *GormDirectoryRepository) ListActive(ctx context.Context, kind directory.Kind) ([]*directory.Record, error) {
	var models []DirectoryRecordModel
	if err := r.db.WithContext(ctx).
		Where("kind = ? AND status = ?", string(kind), string(directory.RecordStatusActive)).
		Order("name ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, domain.NewUnavailableError("list "+string(kind)+"s", err)
	}
	records := make([]*directory.Record, len(models))
	for i := range models {
		records[i] = toDirectoryRecord(&models[i])
	}
	return records, nil
}

// Upsert inserts a record or overwrites the name and status of an existing one.
func (r *GormDirectoryRepository) Upsert(ctx context.Context, record *directory.Record) error {
	model := toDirectoryRecordModel(record)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "status", "updated_at"}),
		}).
		Create(model).Error
	if err != nil {
		return domain.NewUnavailableError("upsert "+string(record.Kind()), err)
	}
	return nil
}

// Archive marks a record archived. Unknown ids are ignored.
func (r *GormDirectoryRepository) Archive(ctx context.Context, kind directory.Kind, id string) error {
	err := r.db.WithContext(ctx).
		Model(&DirectoryRecordModel{}).
		Where("kind = ? AND id = ?", string(kind), id).
		Updates(map[string]interface{}{
			"status":     string(directory.RecordStatusArchived),
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return domain.NewUnavailableError("archive "+string(kind), err)
	}
	return nil
}

func resourceName(kind directory.Kind) string {
	if kind == directory.KindVehicle {
		return "Vehicle"
	}
	return "Customer"
}

// --- Conversions ---

func toDirectoryRecordModel(rec *directory.Record) *DirectoryRecordModel {
	return &DirectoryRecordModel{
		Kind:      string(rec.Kind()),
		ID:        rec.ID(),
		Name:      rec.Name(),
		Status:    string(rec.Status()),
		UpdatedAt: rec.UpdatedAt(),
	}
}

func toDirectoryRecord(m *DirectoryRecordModel) *directory.Record {
	return directory.Reconstruct(
		directory.Kind(m.Kind), m.ID, m.Name,
		directory.RecordStatus(m.Status),
		m.UpdatedAt,
	)
}
