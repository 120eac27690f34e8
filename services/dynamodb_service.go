package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"meetscribe/models"
)

// DynamoDBAPI is the part of *dynamodb.Client the repository uses.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// NewDynamoDBClient creates the client. endpoint overrides the AWS endpoint,
// e.g. http://localhost:8000 for DynamoDB Local.
func NewDynamoDBClient(awsCfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// meetingItem is the stored shape. Summary and Transcription hold the
// caller's JSON text verbatim.
type meetingItem struct {
	MeetingID     string    `dynamodbav:"MeetingID"`
	Title         string    `dynamodbav:"Title"`
	Date          string    `dynamodbav:"Date,omitempty"`
	Summary       string    `dynamodbav:"Summary,omitempty"`
	Transcription string    `dynamodbav:"Transcription,omitempty"`
	Timestamp     string    `dynamodbav:"Timestamp,omitempty"`
	CreatedAt     time.Time `dynamodbav:"CreatedAt"`
	UpdatedAt     time.Time `dynamodbav:"UpdatedAt"`
}

// DynamoMeetingRepository stores meetings in a table keyed by MeetingID.
type DynamoMeetingRepository struct {
	db    DynamoDBAPI
	table string
	clock Clock
}

func NewDynamoMeetingRepository(db DynamoDBAPI, table string, clock Clock) *DynamoMeetingRepository {
	return &DynamoMeetingRepository{db: db, table: table, clock: clockOrDefault(clock)}
}

// EnsureTable creates the meetings table if it does not exist yet.
func (r *DynamoMeetingRepository) EnsureTable(ctx context.Context) error {
	_, err := r.db.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(r.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("MeetingID"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("MeetingID"),
				KeyType:       types.KeyTypeHash,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			log.Ctx(ctx).Debug().Str("table", r.table).Msg("table already exists")
			return nil
		}
		return fmt.Errorf("create table %s: %w", r.table, err)
	}
	log.Ctx(ctx).Info().Str("table", r.table).Msg("table created")
	return nil
}

func (r *DynamoMeetingRepository) Get(ctx context.Context, meetingID string) (*models.Meeting, error) {
	out, err := r.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"MeetingID": &types.AttributeValueMemberS{Value: meetingID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get meeting %s: %w", meetingID, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrMeetingNotFound
	}

	var item meetingItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("decode meeting %s: %w", meetingID, err)
	}
	return item.toMeeting(), nil
}

// CreateIfAbsent relies on a conditional put so the existence check and the
// write are one operation.
func (r *DynamoMeetingRepository) CreateIfAbsent(ctx context.Context, nm models.NewMeeting) (*models.Meeting, error) {
	m := newMeetingRecord(nm, r.clock)
	av, err := attributevalue.MarshalMap(itemFromMeeting(m))
	if err != nil {
		return nil, fmt.Errorf("encode meeting %s: %w", nm.MeetingID, err)
	}

	_, err = r.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(MeetingID)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, ErrMeetingExists
		}
		return nil, fmt.Errorf("put meeting %s: %w", nm.MeetingID, err)
	}
	return m, nil
}

func itemFromMeeting(m *models.Meeting) meetingItem {
	return meetingItem{
		MeetingID:     m.MeetingID,
		Title:         m.Title,
		Date:          m.Date,
		Summary:       string(m.Summary),
		Transcription: string(m.Transcription),
		Timestamp:     m.Timestamp,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func (i meetingItem) toMeeting() *models.Meeting {
	m := &models.Meeting{
		MeetingID: i.MeetingID,
		Title:     i.Title,
		Date:      i.Date,
		Timestamp: i.Timestamp,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
	if i.Summary != "" {
		m.Summary = []byte(i.Summary)
	}
	if i.Transcription != "" {
		m.Transcription = []byte(i.Transcription)
	}
	return m
}

var _ MeetingRepository = (*DynamoMeetingRepository)(nil)
