package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rentfleet/service-rental-booking/internal/common/domain"
	"github.com/rentfleet/service-rental-booking/internal/domain/directory"
)

// OptionDTO is a selectable customer or vehicle.
type OptionDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DirectoryService exposes the Reference Directory to handlers and the sync consumer.
type DirectoryService struct {
	dir    directory.Directory
	now    func() time.Time
	logger *zap.Logger
}

// NewDirectoryService creates a new DirectoryService.
func NewDirectoryService(dir directory.Directory, logger *zap.Logger) *DirectoryService {
	return &DirectoryService{dir: dir, now: time.Now, logger: logger}
}

// ListCustomerOptions returns the active customers ordered by name.
func (s *DirectoryService) ListCustomerOptions(ctx context.Context) ([]OptionDTO, error) {
	return s.listOptions(ctx, directory.KindCustomer)
}

// ListVehicleOptions returns the active vehicles ordered by name.
func (s *DirectoryService) ListVehicleOptions(ctx context.Context) ([]OptionDTO, error) {
	return s.listOptions(ctx, directory.KindVehicle)
}

func (s *DirectoryService) listOptions(ctx context.Context, kind directory.Kind) ([]OptionDTO, error) {
	records, err := s.dir.ListActive(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %ss: %w", kind, err)
	}
	options := make([]OptionDTO, len(records))
	for i, rec := range records {
		options[i] = OptionDTO{ID: rec.ID(), Name: rec.Name()}
	}
	return options, nil
}

// Upsert stores the latest name of a customer or vehicle.
func (s *DirectoryService) Upsert(ctx context.Context, kind directory.Kind, id, name string) error {
	rec, err := directory.NewRecord(kind, id, name, s.now())
	if err != nil {
		return domain.NewValidationError(err.Error())
	}
	if err := s.dir.Upsert(ctx, rec); err != nil {
		return err
	}
	s.logger.Debug("directory record upserted",
		zap.String("kind", string(kind)),
		zap.String("id", rec.ID()),
	)
	return nil
}

// Archive hides a customer or vehicle from option lists.
func (s *DirectoryService) Archive(ctx context.Context, kind directory.Kind, id string) error {
	if !kind.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid record kind: %s", kind))
	}
	return s.dir.Archive(ctx, kind, id)
}

// nameResolver resolves display names for one request, caching lookups.
type nameResolver struct {
	dir       directory.Directory
	logger    *zap.Logger
	customers map[string]string
	vehicles  map[string]string
}

func newNameResolver(dir directory.Directory, logger *zap.Logger) *nameResolver {
	return &nameResolver{
		dir:       dir,
		logger:    logger,
		customers: make(map[string]string),
		vehicles:  make(map[string]string),
	}
}

func (n *nameResolver) customer(ctx context.Context, id string) string {
	return n.resolve(ctx, n.customers, id, n.dir.ResolveCustomerName)
}

func (n *nameResolver) vehicle(ctx context.Context, id string) string {
	return n.resolve(ctx, n.vehicles, id, n.dir.ResolveVehicleName)
}

// resolve falls back to directory.UnknownName when the reference cannot be resolved.
func (n *nameResolver) resolve(
	ctx context.Context,
	cache map[string]string,
	id string,
	lookup func(context.Context, string) (string, error),
) string {
	if name, ok := cache[id]; ok {
		return name
	}
	name := directory.UnknownName
	if id != "" {
		resolved, err := lookup(ctx, id)
		switch {
		case err == nil:
			name = resolved
		case !domain.IsNotFound(err):
			n.logger.Warn("failed to resolve reference name", zap.String("id", id), zap.Error(err))
		}
	}
	cache[id] = name
	return name
}
