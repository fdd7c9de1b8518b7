package store

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pkg/errors"

	"blog-sync/internal/model"
)

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

type dynamoItem struct {
	Slug string `dynamodbav:"slug"`
	View int64  `dynamodbav:"view"`
	Last string `dynamodbav:"last"`
}

func (i dynamoItem) record() model.ViewRecord {
	rec := model.ViewRecord{Slug: i.Slug, View: i.View}
	if t, err := time.Parse(time.RFC3339, i.Last); err == nil {
		rec.LastUpdated = t
	}
	return rec
}

// DynamoStore keeps counters in a table keyed by "slug". Every operation is a
// conditional UpdateItem so the increment happens inside DynamoDB.
type DynamoStore struct {
	client DynamoAPI
	table  string
	now    func() time.Time
}

func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table, now: time.Now}
}

// OpenDynamo builds a client from the default AWS credential chain.
func OpenDynamo(ctx context.Context, region, table string) (*DynamoStore, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return NewDynamoStore(dynamodb.NewFromConfig(cfg), table), nil
}

func (s *DynamoStore) IncrementOrCreate(ctx context.Context, slug string) (model.ViewRecord, error) {
	if slug == "" {
		return model.ViewRecord{}, ErrEmptySlug
	}
	return s.update(ctx, slug, "SET #view = if_not_exists(#view, :zero) + :one, #last = :now", map[string]types.AttributeValue{
		":zero": &types.AttributeValueMemberN{Value: "0"},
		":one":  &types.AttributeValueMemberN{Value: "1"},
		":now":  &types.AttributeValueMemberS{Value: s.now().UTC().Format(time.RFC3339)},
	})
}

func (s *DynamoStore) GetOrCreateMany(ctx context.Context, slugs []string) ([]model.ViewRecord, error) {
	unique, err := uniqueSlugs(slugs)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC().Format(time.RFC3339)
	out := make([]model.ViewRecord, 0, len(unique))
	for _, slug := range unique {
		rec, err := s.update(ctx, slug, "SET #view = if_not_exists(#view, :zero), #last = if_not_exists(#last, :now)", map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":now":  &types.AttributeValueMemberS{Value: now},
		})
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *DynamoStore) update(ctx context.Context, slug, expr string, values map[string]types.AttributeValue) (model.ViewRecord, error) {
	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"slug": &types.AttributeValueMemberS{Value: slug},
		},
		UpdateExpression: aws.String(expr),
		ExpressionAttributeNames: map[string]string{
			"#view": "view",
			"#last": "last",
		},
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return model.ViewRecord{}, errors.Wrapf(err, "update %q", slug)
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(result.Attributes, &item); err != nil {
		return model.ViewRecord{}, errors.Wrapf(err, "decode %q", slug)
	}
	if item.Slug == "" {
		item.Slug = slug
	}
	return item.record(), nil
}

func (s *DynamoStore) Close() error { return nil }
