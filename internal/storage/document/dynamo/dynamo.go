// Package dynamo is a document.Engine backed by Amazon DynamoDB, one table per
// collection, each keyed by a string "id" partition key.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/norahq/nora/internal/storage"
	"github.com/norahq/nora/internal/storage/document"
)

// Ensure Engine implements document.Engine
var _ document.Engine = (*Engine)(nil)

// API is the subset of the DynamoDB client the engine uses.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Config selects the region, endpoint and table names.
type Config struct {
	Region string
	// Endpoint overrides the service endpoint, e.g. DynamoDB Local.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	// TablePrefix is prepended to the collection name (underscores become dashes).
	TablePrefix string
	// Tables overrides the table name per collection.
	Tables map[string]string
}

// Engine stores documents in DynamoDB.
type Engine struct {
	client API
	prefix string
	tables map[string]string
}

// NewFromConfig builds a DynamoDB client from the default AWS configuration
// chain, with static credentials when they are given.
func NewFromConfig(ctx context.Context, cfg Config) (*Engine, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return New(client, cfg.TablePrefix, cfg.Tables), nil
}

// New wraps an existing client.
func New(client API, prefix string, tables map[string]string) *Engine {
	return &Engine{client: client, prefix: prefix, tables: tables}
}

// Table returns the table name used for collection.
func (e *Engine) Table(collection string) string {
	if name, ok := e.tables[collection]; ok && name != "" {
		return name
	}
	return e.prefix + strings.ReplaceAll(collection, "_", "-")
}

func (e *Engine) Insert(ctx context.Context, collection, id string, doc document.Doc) error {
	cond := expression.AttributeNotExists(expression.Name(storage.FieldID))
	err := e.put(ctx, collection, doc, cond)
	if isConditionFailed(err) {
		return document.ErrExists
	}
	return err
}

func (e *Engine) Replace(ctx context.Context, collection, id string, doc document.Doc) error {
	cond := expression.AttributeExists(expression.Name(storage.FieldID))
	err := e.put(ctx, collection, doc, cond)
	if isConditionFailed(err) {
		return document.ErrMissing
	}
	return err
}

func (e *Engine) put(ctx context.Context, collection string, doc document.Doc, cond expression.ConditionBuilder) error {
	item, err := attributevalue.MarshalMap(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build condition: %w", err)
	}

	_, err = e.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(e.Table(collection)),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return err
}

func (e *Engine) Get(ctx context.Context, collection, id string) (document.Doc, error) {
	out, err := e.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(e.Table(collection)),
		Key:            key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, document.ErrMissing
	}

	var doc document.Doc
	if err := attributevalue.UnmarshalMap(out.Item, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return doc, nil
}

func (e *Engine) Delete(ctx context.Context, collection, id string) error {
	_, err := e.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(e.Table(collection)),
		Key:       key(id),
	})
	return err
}

// Scan pages through the whole table. Conditions in hint are sent as a filter
// expression; the adapter re-checks results, so the pushdown only saves bandwidth.
func (e *Engine) Scan(ctx context.Context, collection string, hint *storage.Filter) ([]document.Doc, error) {
	in, err := e.scanInput(collection, hint)
	if err != nil {
		return nil, err
	}

	var docs []document.Doc
	pages := dynamodb.NewScanPaginator(e.client, in)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []document.Doc
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal documents: %w", err)
		}
		docs = append(docs, batch...)
	}
	return docs, nil
}

func (e *Engine) scanInput(collection string, hint *storage.Filter) (*dynamodb.ScanInput, error) {
	in := &dynamodb.ScanInput{
		TableName:      aws.String(e.Table(collection)),
		ConsistentRead: aws.Bool(true),
	}

	conds := filterConditions(hint)
	if len(conds) == 0 {
		return in, nil
	}
	cond := conds[0]
	if len(conds) > 1 {
		cond = expression.And(conds[0], conds[1], conds[2:]...)
	}
	expr, err := expression.NewBuilder().WithFilter(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build filter: %w", err)
	}
	in.FilterExpression = expr.Filter()
	in.ExpressionAttributeNames = expr.Names()
	in.ExpressionAttributeValues = expr.Values()
	return in, nil
}

// filterConditions translates the conditions DynamoDB can evaluate natively.
// Null checks are left to the adapter since unset attributes may be absent or NULL.
func filterConditions(f *storage.Filter) []expression.ConditionBuilder {
	if f.IsEmpty() {
		return nil
	}

	var conds []expression.ConditionBuilder
	names := make([]string, 0, len(f.Equal))
	for name := range f.Equal {
		names = append(names, name)
	}
	// Map order would make the expression text differ between calls.
	sort.Strings(names)
	for _, name := range names {
		v := f.Equal[name]
		if v == nil {
			continue
		}
		conds = append(conds, expression.Name(name).Equal(expression.Value(v)))
	}
	for _, r := range f.Between {
		name := expression.Name(r.Field)
		switch {
		case r.From != nil && r.To != nil:
			conds = append(conds, name.Between(expression.Value(r.From), expression.Value(r.To)))
		case r.From != nil:
			conds = append(conds, name.GreaterThanEqual(expression.Value(r.From)))
		case r.To != nil:
			conds = append(conds, name.LessThanEqual(expression.Value(r.To)))
		}
	}
	return conds
}

// EnsureTables creates any missing tables (on-demand billing). Intended for
// DynamoDB Local and first-time setup.
func (e *Engine) EnsureTables(ctx context.Context) error {
	for _, collection := range document.Collections() {
		_, err := e.client.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName: aws.String(e.Table(collection)),
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(storage.FieldID), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(storage.FieldID), KeyType: types.KeyTypeHash},
			},
			BillingMode: types.BillingModePayPerRequest,
		})
		var inUse *types.ResourceInUseException
		if err != nil && !errors.As(err, &inUse) {
			return fmt.Errorf("failed to create table %s: %w", e.Table(collection), err)
		}
	}
	return nil
}

// Ping checks that the users table is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	_, err := e.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(e.Table(string(storage.KindUser))),
	})
	return err
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (e *Engine) Close() error {
	return nil
}

func key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		storage.FieldID: &types.AttributeValueMemberS{Value: id},
	}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
