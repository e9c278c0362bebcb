package dynamo

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/norahq/nora/internal/storage"
	"github.com/norahq/nora/internal/storage/document"
	"github.com/norahq/nora/internal/storage/storetest"
)

// fakeDynamo is an in-memory stand-in for the DynamoDB API. It honors the
// existence conditions the engine sends and pages scans two items at a time,
// but ignores filter expressions.
type fakeDynamo struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue
	scans  []*dynamodb.ScanInput
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{tables: make(map[string]map[string]map[string]types.AttributeValue)}
}

func (f *fakeDynamo) table(name *string) (map[string]map[string]types.AttributeValue, error) {
	t, ok := f.tables[aws.ToString(name)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found")}
	}
	return t, nil
}

func itemID(item map[string]types.AttributeValue) string {
	s, _ := item["id"].(*types.AttributeValueMemberS)
	if s == nil {
		return ""
	}
	return s.Value
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemOutput{Item: t[itemID(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	id := itemID(in.Item)
	_, exists := t[id]
	cond := aws.ToString(in.ConditionExpression)
	switch {
	case strings.Contains(cond, "attribute_not_exists") && exists,
		strings.Contains(cond, "attribute_exists") && !exists:
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
	}
	t[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	delete(t, itemID(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans = append(f.scans, in)
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	start := 0
	if in.ExclusiveStartKey != nil {
		after := itemID(in.ExclusiveStartKey)
		start = sort.SearchStrings(ids, after)
		if start < len(ids) && ids[start] == after {
			start++
		}
	}

	out := &dynamodb.ScanOutput{}
	end := start + 2
	if end >= len(ids) {
		end = len(ids)
	} else {
		out.LastEvaluatedKey = key(ids[end-1])
	}
	for _, id := range ids[start:end] {
		out.Items = append(out.Items, t[id])
	}
	return out, nil
}

func (f *fakeDynamo) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.TableName)
	if _, ok := f.tables[name]; ok {
		return nil, &types.ResourceInUseException{Message: aws.String("table exists")}
	}
	f.tables[name] = make(map[string]map[string]types.AttributeValue)
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeDynamo) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.table(in.TableName); err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func newEngine(t *testing.T) (*Engine, *fakeDynamo) {
	t.Helper()
	fake := newFakeDynamo()
	engine := New(fake, "nora-", map[string]string{"contacts": "crm-contacts"})
	if err := engine.EnsureTables(context.Background()); err != nil {
		t.Fatalf("EnsureTables failed: %v", err)
	}
	return engine, fake
}

func TestDynamoContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store {
		engine, _ := newEngine(t)
		return document.NewStore(engine)
	})
}

func TestEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("table names", func(t *testing.T) {
		engine, fake := newEngine(t)
		if got := engine.Table("time_entries"); got != "nora-time-entries" {
			t.Errorf("Table(time_entries) = %q", got)
		}
		if got := engine.Table("contacts"); got != "crm-contacts" {
			t.Errorf("Table(contacts) = %q", got)
		}
		if _, ok := fake.tables["nora-unique-keys"]; !ok {
			t.Error("Expected the unique key table to be created")
		}
	})

	t.Run("ensure tables is idempotent", func(t *testing.T) {
		engine, _ := newEngine(t)
		if err := engine.EnsureTables(ctx); err != nil {
			t.Errorf("Second EnsureTables failed: %v", err)
		}
	})

	t.Run("insert and replace conditions", func(t *testing.T) {
		engine, _ := newEngine(t)
		doc := document.Doc{"id": "a", "amount": 1.5}

		if err := engine.Replace(ctx, "expenses", "a", doc); !errors.Is(err, document.ErrMissing) {
			t.Errorf("Expected ErrMissing, got %v", err)
		}
		if err := engine.Insert(ctx, "expenses", "a", doc); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if err := engine.Insert(ctx, "expenses", "a", doc); !errors.Is(err, document.ErrExists) {
			t.Errorf("Expected ErrExists, got %v", err)
		}

		got, err := engine.Get(ctx, "expenses", "a")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got["amount"] != 1.5 {
			t.Errorf("Expected amount 1.5, got %#v", got["amount"])
		}

		if err := engine.Delete(ctx, "expenses", "a"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := engine.Get(ctx, "expenses", "a"); !errors.Is(err, document.ErrMissing) {
			t.Errorf("Expected ErrMissing after delete, got %v", err)
		}
	})

	t.Run("scan pages through the table and pushes filters down", func(t *testing.T) {
		engine, fake := newEngine(t)
		for _, id := range []string{"a", "b", "c", "d", "e"} {
			if err := engine.Insert(ctx, "expenses", id, document.Doc{"id": id, "date": "2024-01-01"}); err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
		}

		docs, err := engine.Scan(ctx, "expenses", storage.Where("is_paid", true).In("date", "2024-01-01", "2024-01-31"))
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if len(docs) != 5 {
			t.Errorf("Expected 5 documents across pages, got %d", len(docs))
		}
		if len(fake.scans) != 3 {
			t.Errorf("Expected 3 scan pages, got %d", len(fake.scans))
		}
		filter := aws.ToString(fake.scans[0].FilterExpression)
		if !strings.Contains(filter, "BETWEEN") || !strings.Contains(filter, "AND") {
			t.Errorf("Expected a BETWEEN filter joined with AND, got %q", filter)
		}
	})

	t.Run("null equality is not pushed down", func(t *testing.T) {
		engine, _ := newEngine(t)
		in, err := engine.scanInput("expenses", storage.Where("vendor_name", nil))
		if err != nil {
			t.Fatalf("scanInput failed: %v", err)
		}
		if in.FilterExpression != nil {
			t.Errorf("Expected no filter expression, got %q", aws.ToString(in.FilterExpression))
		}
	})

	t.Run("missing table surfaces as backend error", func(t *testing.T) {
		store := document.NewStore(New(newFakeDynamo(), "nora-", nil))
		_, err := store.List(ctx, storage.KindContact, nil)
		if !errors.Is(err, storage.ErrBackend) {
			t.Errorf("Expected backend error, got %v", err)
		}
		if err := store.Ping(ctx); err == nil {
			t.Error("Expected ping to fail without tables")
		}
	})
}
