package videostore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/skylight-video/backend/internal/models"
)

// DynamoDBStore implements Store on a DynamoDB table keyed by videoId.
type DynamoDBStore struct {
	client    *dynamodb.Client
	tableName string
	now       func() time.Time
}

// NewDynamoDBStore creates a DynamoDB-backed record store.
func NewDynamoDBStore(awsCfg aws.Config, tableName string) (*DynamoDBStore, error) {
	if tableName == "" {
		return nil, fmt.Errorf("dynamodb table name cannot be empty")
	}
	return &DynamoDBStore{
		client:    dynamodb.NewFromConfig(awsCfg),
		tableName: tableName,
		now:       time.Now,
	}, nil
}

// videoItem is the DynamoDB item shape. Timestamps are stored as RFC3339
// strings to match the historical table contents.
type videoItem struct {
	VideoID      string `dynamodbav:"videoId"`
	Title        string `dynamodbav:"title"`
	Status       string `dynamodbav:"status"`
	InputKey     string `dynamodbav:"inputKey"`
	OutputKey    string `dynamodbav:"outputKey,omitempty"`
	ErrorMessage string `dynamodbav:"errorMessage,omitempty"`
	CreatedAt    string `dynamodbav:"createdAt"`
	UpdatedAt    string `dynamodbav:"updatedAt"`
}

func itemFromVideo(v *models.Video) videoItem {
	return videoItem{
		VideoID:      v.VideoID,
		Title:        v.Title,
		Status:       string(v.Status),
		InputKey:     v.InputKey,
		OutputKey:    v.OutputKey,
		ErrorMessage: v.ErrorMessage,
		CreatedAt:    v.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (it videoItem) toVideo() models.Video {
	createdAt, _ := time.Parse(time.RFC3339, it.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, it.UpdatedAt)
	return models.Video{
		VideoID:      it.VideoID,
		Title:        it.Title,
		Status:       models.VideoStatus(it.Status),
		InputKey:     it.InputKey,
		OutputKey:    it.OutputKey,
		ErrorMessage: it.ErrorMessage,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
}

// Create puts a fresh record.
func (s *DynamoDBStore) Create(ctx context.Context, video *models.Video) error {
	av, err := attributevalue.MarshalMap(itemFromVideo(video))
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get returns the current record or ErrNotFound.
func (s *DynamoDBStore) Get(ctx context.Context, videoID string) (*models.Video, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"videoId": &types.AttributeValueMemberS{Value: videoID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var it videoItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	v := it.toVideo()
	return &v, nil
}

// MarkProcessing transitions PENDING -> PROCESSING.
func (s *DynamoDBStore) MarkProcessing(ctx context.Context, videoID string) error {
	return s.transition(ctx, videoID, models.VideoStatusProcessing, nil)
}

// MarkReady transitions PROCESSING -> READY and records the manifest key.
func (s *DynamoDBStore) MarkReady(ctx context.Context, videoID, outputKey string) error {
	return s.transition(ctx, videoID, models.VideoStatusReady, map[string]string{"outputKey": outputKey})
}

// MarkFailed transitions PROCESSING -> ERROR and records the failure cause.
func (s *DynamoDBStore) MarkFailed(ctx context.Context, videoID, errorMessage string) error {
	return s.transition(ctx, videoID, models.VideoStatusError, map[string]string{"errorMessage": errorMessage})
}

// transition performs a conditional status update. The condition requires
// the record to exist and to hold the expected predecessor status, so a
// rejected write means either a missing record or a stale event.
func (s *DynamoDBStore) transition(ctx context.Context, videoID string, next models.VideoStatus, extra map[string]string) error {
	expect, ok := models.Predecessor(next)
	if !ok {
		return fmt.Errorf("no transition into %s", next)
	}

	update := "SET #st = :next, updatedAt = :now"
	names := map[string]string{"#st": "status"}
	values := map[string]types.AttributeValue{
		":next":   &types.AttributeValueMemberS{Value: string(next)},
		":expect": &types.AttributeValueMemberS{Value: string(expect)},
		":now":    &types.AttributeValueMemberS{Value: s.now().UTC().Format(time.RFC3339)},
	}
	i := 0
	for field, val := range extra {
		name := fmt.Sprintf("#f%d", i)
		value := fmt.Sprintf(":f%d", i)
		update += fmt.Sprintf(", %s = %s", name, value)
		names[name] = field
		values[value] = &types.AttributeValueMemberS{Value: val}
		i++
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       map[string]types.AttributeValue{"videoId": &types.AttributeValueMemberS{Value: videoID}},
		UpdateExpression:          aws.String(update),
		ConditionExpression:       aws.String("attribute_exists(videoId) AND #st = :expect"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			// Disambiguate: missing record vs stale status.
			if _, getErr := s.Get(ctx, videoID); getErr != nil {
				if errors.Is(getErr, ErrNotFound) {
					return ErrNotFound
				}
				return fmt.Errorf("update item: %w", err)
			}
			return ErrStaleTransition
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// List performs a bounded scan. The continuation token is the base64 of the
// JSON-serialized LastEvaluatedKey, opaque to callers.
func (s *DynamoDBStore) List(ctx context.Context, limit int, token string) (Page, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(s.tableName),
		Limit:     aws.Int32(int32(limit)),
	}
	if token != "" {
		startKey, err := decodeScanToken(token)
		if err != nil {
			return Page{}, ErrBadToken
		}
		input.ExclusiveStartKey = startKey
	}

	out, err := s.client.Scan(ctx, input)
	if err != nil {
		return Page{}, fmt.Errorf("scan: %w", err)
	}

	var items []videoItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return Page{}, fmt.Errorf("unmarshal items: %w", err)
	}
	page := Page{Items: make([]models.Video, 0, len(items))}
	for _, it := range items {
		page.Items = append(page.Items, it.toVideo())
	}
	if len(out.LastEvaluatedKey) > 0 {
		page.NextToken, err = encodeScanToken(out.LastEvaluatedKey)
		if err != nil {
			return Page{}, fmt.Errorf("encode token: %w", err)
		}
	}
	return page, nil
}

// scanKey is the serializable form of a DynamoDB exclusive start key. Only
// string attributes occur in this table's key schema.
type scanKey map[string]string

func encodeScanToken(key map[string]types.AttributeValue) (string, error) {
	sk := make(scanKey, len(key))
	for name, av := range key {
		member, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("unexpected key attribute type for %s", name)
		}
		sk[name] = member.Value
	}
	raw, err := json.Marshal(sk)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func decodeScanToken(token string) (map[string]types.AttributeValue, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	var sk scanKey
	if err := json.Unmarshal(raw, &sk); err != nil {
		return nil, err
	}
	if len(sk) == 0 {
		return nil, fmt.Errorf("empty scan key")
	}
	key := make(map[string]types.AttributeValue, len(sk))
	for name, value := range sk {
		key[name] = &types.AttributeValueMemberS{Value: value}
	}
	return key, nil
}
