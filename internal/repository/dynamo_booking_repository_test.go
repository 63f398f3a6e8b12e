package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rentfleet/service-rental-booking/internal/common/domain"
	bookingDomain "github.com/rentfleet/service-rental-booking/internal/domain/booking"
)

type mockDynamoDB struct {
	mock.Mock
}

func (m *mockDynamoDB) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (m *mockDynamoDB) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockDynamoDB) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)
	return out, args.Error(1)
}

func (m *mockDynamoDB) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.ScanOutput)
	return out, args.Error(1)
}

func marshalItem(t *testing.T, bk *bookingDomain.Booking) map[string]types.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMap(toBookingItem(bk))
	require.NoError(t, err)
	return av
}

func TestBookingItem_RoundTrip(t *testing.T) {
	bk := newTestBooking(t, "Weekend Trip", "2024-01-01", "2024-01-05", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, bk.TransitionTo(bookingDomain.StatusCancelled, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)))

	item := toBookingItem(bk)
	assert.Equal(t, "weekend trip", item.NameLower)
	assert.Equal(t, "2024-01-05", item.EndDate)
	assert.Empty(t, item.ExpiredAt)

	back, err := fromBookingItem(item)
	require.NoError(t, err)
	assert.Equal(t, bk.ID(), back.ID())
	assert.True(t, bk.EndDate().Equal(back.EndDate()))
	assert.Equal(t, bookingDomain.StatusCancelled, back.Status())
	assert.True(t, bk.CancelledAt().Equal(*back.CancelledAt()))
	assert.Nil(t, back.ExpiredAt())
	assert.Equal(t, int64(2), back.Version())
}

func TestBookingItem_RejectsCorruptTimestamps(t *testing.T) {
	bk := newTestBooking(t, "Weekend Trip", "2024-01-01", "2024-01-05", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))

	cases := map[string]func(*bookingItem){
		"created_at":   func(it *bookingItem) { it.CreatedAt = "yesterday" },
		"updated_at":   func(it *bookingItem) { it.UpdatedAt = "" },
		"cancelled_at": func(it *bookingItem) { it.CancelledAt = "2024-13-45T00:00:00Z" },
		"expired_at":   func(it *bookingItem) { it.ExpiredAt = "not-a-time" },
	}
	for attr, corrupt := range cases {
		t.Run(attr, func(t *testing.T) {
			item := toBookingItem(bk)
			corrupt(&item)

			_, err := fromBookingItem(item)

			require.Error(t, err)
			assert.Contains(t, err.Error(), attr)
		})
	}
}

func TestDynamoBookingRepository_Insert(t *testing.T) {
	ctx := context.Background()
	bk := newTestBooking(t, "B1", "2024-01-01", "2024-01-05", time.Now())

	t.Run("conditional put", func(t *testing.T) {
		ddb := new(mockDynamoDB)
		ddb.On("PutItem", ctx, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
			return *in.TableName == "bookings" && *in.ConditionExpression == "attribute_not_exists(#id)"
		})).Return(&dynamodb.PutItemOutput{}, nil)

		require.NoError(t, NewDynamoBookingRepository(ddb, "bookings").Insert(ctx, bk))
		ddb.AssertExpectations(t)
	})

	t.Run("driver failure is unavailable", func(t *testing.T) {
		ddb := new(mockDynamoDB)
		ddb.On("PutItem", ctx, mock.Anything).Return(nil, errors.New("connection reset"))

		err := NewDynamoBookingRepository(ddb, "bookings").Insert(ctx, bk)
		assert.True(t, domain.IsUnavailable(err))
	})
}

func TestDynamoBookingRepository_Get(t *testing.T) {
	ctx := context.Background()
	bk := newTestBooking(t, "B1", "2024-01-01", "2024-01-05", time.Now())
	ddb := new(mockDynamoDB)
	ddb.On("GetItem", ctx, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return in.Key["id"].(*types.AttributeValueMemberS).Value == bk.ID().String()
	})).Return(&dynamodb.GetItemOutput{Item: marshalItem(t, bk)}, nil)
	ddb.On("GetItem", ctx, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)
	repo := NewDynamoBookingRepository(ddb, "bookings")

	got, err := repo.Get(ctx, bk.ID())
	require.NoError(t, err)
	assert.Equal(t, "B1", got.Name())

	_, err = repo.Get(ctx, uuid.New())
	assert.True(t, domain.IsNotFound(err))
}

func TestDynamoBookingRepository_ScanPaginatesAndSorts(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older := newTestBooking(t, "older", "2024-01-01", "2024-01-02", base)
	newer := newTestBooking(t, "newer", "2024-01-01", "2024-01-02", base.Add(time.Hour))
	cursor := map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: newer.ID().String()}}

	ddb := new(mockDynamoDB)
	ddb.On("Scan", ctx, mock.MatchedBy(func(in *dynamodb.ScanInput) bool { return in.ExclusiveStartKey == nil })).
		Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{marshalItem(t, newer)}, LastEvaluatedKey: cursor}, nil).Once()
	ddb.On("Scan", ctx, mock.MatchedBy(func(in *dynamodb.ScanInput) bool { return in.ExclusiveStartKey != nil })).
		Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{marshalItem(t, older)}}, nil).Once()

	all, err := NewDynamoBookingRepository(ddb, "bookings").ListAll(ctx)

	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "older", all[0].Name())
	assert.Equal(t, "newer", all[1].Name())
	ddb.AssertExpectations(t)
}

func TestDynamoBookingRepository_FindOverdueFilter(t *testing.T) {
	ctx := context.Background()
	ddb := new(mockDynamoDB)
	ddb.On("Scan", ctx, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		asOf := in.ExpressionAttributeValues[":as_of"].(*types.AttributeValueMemberS).Value
		return *in.FilterExpression == "#status = :active AND #end_date < :as_of" && asOf == "2024-01-10"
	})).Return(&dynamodb.ScanOutput{}, nil)

	overdue, err := NewDynamoBookingRepository(ddb, "bookings").FindOverdue(ctx, bookingDomain.NewDate(2024, 1, 10))

	require.NoError(t, err)
	assert.Empty(t, overdue)
	ddb.AssertExpectations(t)
}

func TestDynamoBookingRepository_TransitionStatus(t *testing.T) {
	ctx := context.Background()
	bk := newTestBooking(t, "B1", "2024-01-01", "2024-01-05", time.Now())

	t.Run("success returns new image", func(t *testing.T) {
		updated := bk.Clone()
		require.NoError(t, updated.TransitionTo(bookingDomain.StatusExpired, time.Now()))
		ddb := new(mockDynamoDB)
		ddb.On("UpdateItem", ctx, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
			return in.ExpressionAttributeNames["#stamp"] == "expired_at" &&
				in.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberS).Value == "active"
		})).Return(&dynamodb.UpdateItemOutput{Attributes: marshalItem(t, updated)}, nil)

		got, err := NewDynamoBookingRepository(ddb, "bookings").
			TransitionStatus(ctx, bk.ID(), bookingDomain.StatusActive, bookingDomain.StatusExpired)

		require.NoError(t, err)
		assert.Equal(t, bookingDomain.StatusExpired, got.Status())
	})

	t.Run("status mismatch is precondition failed", func(t *testing.T) {
		cancelled := bk.Clone()
		require.NoError(t, cancelled.TransitionTo(bookingDomain.StatusCancelled, time.Now()))
		ddb := new(mockDynamoDB)
		ddb.On("UpdateItem", ctx, mock.Anything).
			Return(nil, &types.ConditionalCheckFailedException{Item: marshalItem(t, cancelled)})

		_, err := NewDynamoBookingRepository(ddb, "bookings").
			TransitionStatus(ctx, bk.ID(), bookingDomain.StatusActive, bookingDomain.StatusExpired)

		var pf *domain.PreconditionFailedError
		require.ErrorAs(t, err, &pf)
		assert.Equal(t, "cancelled", pf.Actual)
	})

	t.Run("missing item is not found", func(t *testing.T) {
		ddb := new(mockDynamoDB)
		ddb.On("UpdateItem", ctx, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

		_, err := NewDynamoBookingRepository(ddb, "bookings").
			TransitionStatus(ctx, bk.ID(), bookingDomain.StatusActive, bookingDomain.StatusCancelled)

		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("disallowed transition never reaches the table", func(t *testing.T) {
		ddb := new(mockDynamoDB)

		_, err := NewDynamoBookingRepository(ddb, "bookings").
			TransitionStatus(ctx, bk.ID(), bookingDomain.StatusCancelled, bookingDomain.StatusExpired)

		var ise *domain.InvalidStateError
		assert.ErrorAs(t, err, &ise)
		ddb.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
	})
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now\\`, escapeLike(`50% off_now\`))
}
