package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo applies the two update expressions the store sends.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]dynamoItem
}

func newFakeDynamo() *fakeDynamo { return &fakeDynamo{items: make(map[string]dynamoItem)} }

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	slug := in.Key["slug"].(*types.AttributeValueMemberS).Value
	now := in.ExpressionAttributeValues[":now"].(*types.AttributeValueMemberS).Value
	item, exists := f.items[slug]
	if !exists {
		item = dynamoItem{Slug: slug, Last: now}
	}
	if strings.Contains(*in.UpdateExpression, "+ :one") {
		item.View++
		item.Last = now
	}
	f.items[slug] = item

	attrs, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, err
	}
	return &dynamodb.UpdateItemOutput{Attributes: attrs}, nil
}

func stores(t *testing.T) map[string]ViewStore {
	t.Helper()
	sqlite, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]ViewStore{
		"memory":   NewMemoryStore(),
		"sqlite":   sqlite,
		"dynamodb": NewDynamoStore(newFakeDynamo(), "posts"),
	}
}

func TestIncrementOrCreate(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			rec, err := s.IncrementOrCreate(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, "a", rec.Slug)
			assert.Equal(t, int64(1), rec.View)

			rec, err = s.IncrementOrCreate(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, int64(2), rec.View)

			_, err = s.IncrementOrCreate(ctx, "")
			assert.True(t, errors.Is(err, ErrEmptySlug))
		})
	}
}

func TestGetOrCreateMany(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			recs, err := s.GetOrCreateMany(ctx, []string{"c", "a", "b"})
			require.NoError(t, err)
			require.Len(t, recs, 3)
			for i, slug := range []string{"c", "a", "b"} {
				assert.Equal(t, slug, recs[i].Slug)
				assert.Equal(t, int64(0), recs[i].View)
			}

			_, err = s.IncrementOrCreate(ctx, "a")
			require.NoError(t, err)

			recs, err = s.GetOrCreateMany(ctx, []string{"a", "d", "a", "c"})
			require.NoError(t, err)
			require.Len(t, recs, 3)
			assert.Equal(t, "a", recs[0].Slug)
			assert.Equal(t, int64(1), recs[0].View)
			assert.Equal(t, "d", recs[1].Slug)
			assert.Equal(t, int64(0), recs[1].View)
			assert.Equal(t, "c", recs[2].Slug)
			assert.Equal(t, int64(0), recs[2].View)

			recs, err = s.GetOrCreateMany(ctx, nil)
			require.NoError(t, err)
			assert.Empty(t, recs)

			_, err = s.GetOrCreateMany(ctx, []string{"x", ""})
			assert.True(t, errors.Is(err, ErrEmptySlug))
		})
	}
}

func TestIncrementOrCreate_Concurrent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			const n = 50
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.IncrementOrCreate(context.Background(), "hot")
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			recs, err := s.GetOrCreateMany(context.Background(), []string{"hot"})
			require.NoError(t, err)
			assert.Equal(t, int64(n), recs[0].View)
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "cassandra"})
	require.Error(t, err)

	s, err := Open(context.Background(), Options{Driver: DriverMemory})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}
