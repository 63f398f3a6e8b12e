package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/rentfleet/service-rental-booking/internal/common/domain"
	bookingDomain "github.com/rentfleet/service-rental-booking/internal/domain/booking"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoBookingRepository.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type bookingItem struct {
	ID          string `dynamodbav:"id"`
	Name        string `dynamodbav:"name"`
	NameLower   string `dynamodbav:"name_lower"`
	CustomerID  string `dynamodbav:"customer_id"`
	VehicleID   string `dynamodbav:"vehicle_id"`
	StartDate   string `dynamodbav:"start_date"`
	EndDate     string `dynamodbav:"end_date"`
	Status      string `dynamodbav:"status"`
	CancelledAt string `dynamodbav:"cancelled_at,omitempty"`
	ExpiredAt   string `dynamodbav:"expired_at,omitempty"`
	Version     int64  `dynamodbav:"version"`
	CreatedAt   string `dynamodbav:"created_at"`
	UpdatedAt   string `dynamodbav:"updated_at"`
}

// DynamoBookingRepository persists bookings in a DynamoDB table.
//
// Table requirements:
//   - PK: id (string)
//
// Dates are stored as YYYY-MM-DD strings so that lexical comparison in filter
// expressions matches calendar order.
type DynamoBookingRepository struct {
	ddb       DynamoDBAPI
	tableName string
	now       func() time.Time
}

var _ bookingDomain.BookingRepository = (*DynamoBookingRepository)(nil)

// NewDynamoBookingRepository creates a new DynamoBookingRepository.
func NewDynamoBookingRepository(ddb DynamoDBAPI, tableName string) *DynamoBookingRepository {
	return &DynamoBookingRepository{ddb: ddb, tableName: tableName, now: time.Now}
}

// Insert persists a new booking.
func (r *DynamoBookingRepository) Insert(ctx context.Context, bk *bookingDomain.Booking) error {
	av, err := attributevalue.MarshalMap(toBookingItem(bk))
	if err != nil {
		return fmt.Errorf("failed to marshal booking: %w", err)
	}

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": "id",
		},
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return domain.NewConflictError("booking " + bk.ID().String() + " already exists")
		}
		return domain.NewUnavailableError("insert booking", err)
	}
	return nil
}

// Get retrieves a booking by its unique identifier.
func (r *DynamoBookingRepository) Get(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            bookingKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, domain.NewUnavailableError("get booking", err)
	}
	if len(out.Item) == 0 {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return unmarshalBooking(out.Item)
}

// ListAll retrieves every booking, oldest first.
func (r *DynamoBookingRepository) ListAll(ctx context.Context) ([]*bookingDomain.Booking, error) {
	return r.scan(ctx, "list bookings", &dynamodb.ScanInput{})
}

// FindByNameContains retrieves bookings whose name contains term, ignoring case.
func (r *DynamoBookingRepository) FindByNameContains(ctx context.Context, term string) ([]*bookingDomain.Booking, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return r.ListAll(ctx)
	}
	return r.scan(ctx, "search bookings", &dynamodb.ScanInput{
		FilterExpression: aws.String("contains(#name_lower, :term)"),
		ExpressionAttributeNames: map[string]string{
			"#name_lower": "name_lower",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":term": &types.AttributeValueMemberS{Value: term},
		},
	})
}

// FindOverdue retrieves active bookings whose end date is strictly before asOf.
func (r *DynamoBookingRepository) FindOverdue(ctx context.Context, asOf bookingDomain.Date) ([]*bookingDomain.Booking, error) {
	return r.scan(ctx, "find overdue bookings", &dynamodb.ScanInput{
		FilterExpression: aws.String("#status = :active AND #end_date < :as_of"),
		ExpressionAttributeNames: map[string]string{
			"#status":   "status",
			"#end_date": "end_date",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":active": &types.AttributeValueMemberS{Value: string(bookingDomain.StatusActive)},
			":as_of":  &types.AttributeValueMemberS{Value: asOf.String()},
		},
	})
}

// TransitionStatus moves a booking from expected to next with a conditional UpdateItem.
func (r *DynamoBookingRepository) TransitionStatus(ctx context.Context, id uuid.UUID, expected, next bookingDomain.BookingStatus) (*bookingDomain.Booking, error) {
	if !expected.CanTransitionTo(next) {
		return nil, domain.NewInvalidStateError(string(expected), string(next))
	}

	now := r.now().UTC().Format(time.RFC3339Nano)
	expr := "SET #status = :next, #version = #version + :one, #updated_at = :now"
	names := map[string]string{
		"#id":         "id",
		"#status":     "status",
		"#version":    "version",
		"#updated_at": "updated_at",
	}
	switch next {
	case bookingDomain.StatusCancelled:
		expr += ", #stamp = :now"
		names["#stamp"] = "cancelled_at"
	case bookingDomain.StatusExpired:
		expr += ", #stamp = :now"
		names["#stamp"] = "expired_at"
	}

	out, err := r.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 bookingKey(id),
		ConditionExpression: aws.String("attribute_exists(#id) AND #status = :expected"),
		UpdateExpression:    aws.String(expr),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberS{Value: string(expected)},
			":next":     &types.AttributeValueMemberS{Value: string(next)},
			":one":      &types.AttributeValueMemberN{Value: "1"},
			":now":      &types.AttributeValueMemberS{Value: now},
		},
		ExpressionAttributeNames:            names,
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return nil, conditionFailure(id, expected, cfe.Item)
		}
		return nil, domain.NewUnavailableError("transition booking", err)
	}
	return unmarshalBooking(out.Attributes)
}

// conditionFailure distinguishes a missing booking from a status mismatch using the
// item DynamoDB returns with a failed condition check.
func conditionFailure(id uuid.UUID, expected bookingDomain.BookingStatus, old map[string]types.AttributeValue) error {
	if len(old) == 0 {
		return domain.NewNotFoundError("Booking", id.String())
	}
	var it bookingItem
	if err := attributevalue.UnmarshalMap(old, &it); err != nil {
		return fmt.Errorf("failed to unmarshal booking: %w", err)
	}
	return domain.NewPreconditionFailedError(id.String(), string(expected), it.Status)
}

func (r *DynamoBookingRepository) scan(ctx context.Context, op string, in *dynamodb.ScanInput) ([]*bookingDomain.Booking, error) {
	in.TableName = aws.String(r.tableName)
	in.ConsistentRead = aws.Bool(true)

	var bookings []*bookingDomain.Booking
	for {
		out, err := r.ddb.Scan(ctx, in)
		if err != nil {
			return nil, domain.NewUnavailableError(op, err)
		}
		for _, item := range out.Items {
			bk, err := unmarshalBooking(item)
			if err != nil {
				return nil, err
			}
			bookings = append(bookings, bk)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}

	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].CreatedAt().Equal(bookings[j].CreatedAt()) {
			return bookings[i].ID().String() < bookings[j].ID().String()
		}
		return bookings[i].CreatedAt().Before(bookings[j].CreatedAt())
	})
	if bookings == nil {
		bookings = []*bookingDomain.Booking{}
	}
	return bookings, nil
}

func bookingKey(id uuid.UUID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id.String()},
	}
}

func unmarshalBooking(av map[string]types.AttributeValue) (*bookingDomain.Booking, error) {
	var it bookingItem
	if err := attributevalue.UnmarshalMap(av, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal booking: %w", err)
	}
	return fromBookingItem(it)
}

func toBookingItem(bk *bookingDomain.Booking) bookingItem {
	return bookingItem{
		ID:          bk.ID().String(),
		Name:        bk.Name(),
		NameLower:   strings.ToLower(bk.Name()),
		CustomerID:  bk.CustomerID(),
		VehicleID:   bk.VehicleID(),
		StartDate:   bk.StartDate().String(),
		EndDate:     bk.EndDate().String(),
		Status:      string(bk.Status()),
		CancelledAt: formatOptionalTime(bk.CancelledAt()),
		ExpiredAt:   formatOptionalTime(bk.ExpiredAt()),
		Version:     bk.Version(),
		CreatedAt:   bk.CreatedAt().UTC().Format(time.RFC3339Nano),
		UpdatedAt:   bk.UpdatedAt().UTC().Format(time.RFC3339Nano),
	}
}

func fromBookingItem(it bookingItem) (*bookingDomain.Booking, error) {
	id, err := uuid.Parse(it.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking id %q: %w", it.ID, err)
	}
	status, err := bookingDomain.ParseBookingStatus(it.Status)
	if err != nil {
		return nil, err
	}
	start, err := bookingDomain.ParseDate(it.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := bookingDomain.ParseDate(it.EndDate)
	if err != nil {
		return nil, err
	}
	createdAt, err := parseTime("created_at", it.CreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := parseTime("updated_at", it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	cancelledAt, err := parseOptionalTime("cancelled_at", it.CancelledAt)
	if err != nil {
		return nil, err
	}
	expiredAt, err := parseOptionalTime("expired_at", it.ExpiredAt)
	if err != nil {
		return nil, err
	}

	return bookingDomain.ReconstructBooking(
		id,
		it.Name,
		it.CustomerID,
		it.VehicleID,
		start,
		end,
		status,
		cancelledAt,
		expiredAt,
		it.Version,
		createdAt,
		updatedAt,
	), nil
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(attr, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", attr, s, err)
	}
	return t, nil
}

func parseOptionalTime(attr, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseTime(attr, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
