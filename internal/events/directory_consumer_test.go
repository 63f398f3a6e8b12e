package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rentfleet/service-rental-booking/internal/common/domain"
	"github.com/rentfleet/service-rental-booking/internal/common/kafka"
	"github.com/rentfleet/service-rental-booking/internal/domain/directory"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) Upsert(ctx context.Context, kind directory.Kind, id, name string) error {
	return m.Called(ctx, kind, id, name).Error(0)
}

func (m *mockWriter) Archive(ctx context.Context, kind directory.Kind, id string) error {
	return m.Called(ctx, kind, id).Error(0)
}

func newTestConsumer(writer DirectoryWriter) *DirectoryEventConsumer {
	return &DirectoryEventConsumer{writer: writer, logger: zap.NewNop()}
}

func eventMessage(t *testing.T, eventType string, data interface{}) kafkago.Message {
	t.Helper()
	ce, err := kafka.NewCloudEvent("service-fleet", eventType, "subject", data)
	require.NoError(t, err)
	raw, err := json.Marshal(ce)
	require.NoError(t, err)
	return kafkago.Message{Value: raw}
}

func TestHandleMessage_Upserts(t *testing.T) {
	ctx := context.Background()
	writer := new(mockWriter)
	writer.On("Upsert", ctx, directory.KindVehicle, "V1", "Van").Return(nil).Once()
	writer.On("Upsert", ctx, directory.KindCustomer, "C1", "Alice").Return(nil).Once()
	c := newTestConsumer(writer)

	require.NoError(t, c.handleMessage(ctx, eventMessage(t, VehicleUpserted, DirectoryRecordEvent{ID: "V1", Name: "Van"})))
	require.NoError(t, c.handleMessage(ctx, eventMessage(t, CustomerUpserted, DirectoryRecordEvent{ID: "C1", Name: "Alice"})))

	writer.AssertExpectations(t)
}

func TestHandleMessage_Archives(t *testing.T) {
	ctx := context.Background()
	writer := new(mockWriter)
	writer.On("Archive", ctx, directory.KindCustomer, "C1").Return(nil).Once()
	c := newTestConsumer(writer)

	require.NoError(t, c.handleMessage(ctx, eventMessage(t, CustomerArchived, DirectoryRecordEvent{ID: "C1"})))

	writer.AssertExpectations(t)
}

func TestHandleMessage_DropsWhatCannotSucceed(t *testing.T) {
	ctx := context.Background()
	writer := new(mockWriter)
	writer.On("Upsert", ctx, directory.KindVehicle, "V1", "").
		Return(domain.NewValidationError("vehicle name is required")).Once()
	c := newTestConsumer(writer)

	assert.NoError(t, c.handleMessage(ctx, kafkago.Message{Value: []byte("not json")}))
	assert.NoError(t, c.handleMessage(ctx, eventMessage(t, "rental.fleet.vehicle.serviced", map[string]string{"id": "V1"})))
	assert.NoError(t, c.handleMessage(ctx, eventMessage(t, VehicleUpserted, "just a string")))
	assert.NoError(t, c.handleMessage(ctx, eventMessage(t, VehicleUpserted, DirectoryRecordEvent{ID: "V1"})))

	writer.AssertExpectations(t)
}

func TestHandleMessage_StoreFailureIsRetried(t *testing.T) {
	ctx := context.Background()
	writer := new(mockWriter)
	storeErr := domain.NewUnavailableError("upsert vehicle", errors.New("connection refused"))
	writer.On("Upsert", ctx, directory.KindVehicle, "V1", "Van").Return(storeErr)
	c := newTestConsumer(writer)

	err := c.handleMessage(ctx, eventMessage(t, VehicleUpserted, DirectoryRecordEvent{ID: "V1", Name: "Van"}))

	assert.True(t, domain.IsUnavailable(err))
}
