/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/suparena/entitysync/datastore"
	"github.com/suparena/entitysync/errors"
	"github.com/suparena/entitysync/pager"
	"github.com/suparena/entitysync/registry"
)

// EntityTypeAttribute is written into every item and checked on list queries
const EntityTypeAttribute = "EntityType"

// API is the part of the DynamoDB client the backend uses
type API interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
}

// Input is the request data of one backend call. Exactly one field is set.
type Input struct {
	Get    *sdk.GetItemInput
	Put    *sdk.PutItemInput
	Update *sdk.UpdateItemInput
	Delete *sdk.DeleteItemInput
	Query  *sdk.QueryInput
}

// Backend stores entities in a single DynamoDB table. Key attributes come from
// the index map registered for each entity type.
type Backend struct {
	client    API
	tableName string
	registry  *registry.Registry
	retry     RetryOptions
}

// Option configures a Backend
type Option func(*Backend)

// WithRegistry reads index maps from r instead of registry.Default
func WithRegistry(r *registry.Registry) Option {
	return func(b *Backend) {
		b.registry = r
	}
}

// WithRetry sets the retry policy for throttled calls
func WithRetry(opts RetryOptions) Option {
	return func(b *Backend) {
		b.retry = opts
	}
}

// New creates a Backend on tableName
func New(client API, tableName string, opts ...Option) *Backend {
	b := &Backend{
		client:    client,
		tableName: tableName,
		registry:  registry.Default,
		retry:     DefaultRetryOptions(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ClientConfig holds what NewDynamoDBClient needs. Empty credentials fall back to
// the default AWS credential chain.
type ClientConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	// Endpoint overrides the service endpoint, for DynamoDB Local.
	Endpoint string
}

// NewDynamoDBClient initializes a DynamoDB client
func NewDynamoDBClient(ctx context.Context, cfg ClientConfig) (*sdk.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := sdk.NewFromConfig(awsCfg, func(o *sdk.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	zerolog.Ctx(ctx).Debug().Str("region", cfg.Region).Str("endpoint", cfg.Endpoint).Msg("DynamoDB client initialized")
	return client, nil
}

// ID returns the table URL
func (b *Backend) ID() string {
	return "dynamodb://" + b.tableName
}

// Filters returns the fields the GSI1 partition key of entityType is built from
func (b *Backend) Filters(entityType string) []string {
	indexMap, ok := b.registry.IndexMap(entityType)
	if !ok {
		return nil
	}
	return macros(indexMap[ListIndex+"PK"])
}

// Request builds the DynamoDB input for call
func (b *Backend) Request(call *datastore.Call) (*pager.Request, error) {
	indexMap, ok := b.registry.IndexMap(call.Type())
	if !ok {
		return nil, errors.NewUnsupportedOperationError(call.Operation.String(), call.Type(), "no index map")
	}

	req := &pager.Request{
		URL: b.ID() + "/" + call.Type(),
	}

	switch call.Operation {
	case datastore.Read, datastore.Update, datastore.Delete:
		if !call.ID.Valid() {
			return nil, errors.NewValidationError(call.Definition.Key(), fmt.Sprintf("%s %s requires a key", call.Operation, call.Type()))
		}
		key, err := buildKeyFromExpanded(expandStringKey(indexMap, call.ID.String()))
		if err != nil {
			return nil, errors.NewUnsupportedOperationError(call.Operation.String(), call.Type(), err.Error())
		}

		switch call.Operation {
		case datastore.Read:
			req.Method = "GetItem"
			req.Data = &Input{Get: &sdk.GetItemInput{TableName: &b.tableName, Key: key}}
		case datastore.Delete:
			req.Method = "DeleteItem"
			req.Data = &Input{Delete: &sdk.DeleteItemInput{
				TableName:           &b.tableName,
				Key:                 key,
				ConditionExpression: aws.String("attribute_exists(PK)"),
			}}
		default:
			in, err := b.updateInput(call, key)
			if err != nil {
				return nil, err
			}
			req.Method = "UpdateItem"
			req.Data = &Input{Update: in}
		}

	case datastore.Create:
		in, err := b.putInput(call, indexMap)
		if err != nil {
			return nil, err
		}
		req.Method = "PutItem"
		req.Data = &Input{Put: in}

	case datastore.ReadList:
		in, err := b.queryInput(call, indexMap)
		if err != nil {
			return nil, err
		}
		req.Method = "Query"
		req.Data = &Input{Query: in}

	default:
		return nil, errors.NewUnsupportedOperationError(call.Operation.String(), call.Type(), "unknown operation")
	}

	return req, nil
}

// putInput builds the item of a create. A missing key is generated.
func (b *Backend) putInput(call *datastore.Call, indexMap map[string]string) (*sdk.PutItemInput, error) {
	data := make(map[string]any, len(call.Data)+1)
	for k, v := range call.Data {
		data[k] = v
	}
	if v, ok := data[call.Definition.Key()]; !ok || v == nil || v == "" {
		data[call.Definition.Key()] = uuid.NewString()
	}

	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}

	// Expand macros using the entity itself
	expanded, err := expandMacros(indexMap, data)
	if err != nil {
		return nil, err
	}
	if _, err := buildKeyFromExpanded(expanded); err != nil {
		return nil, errors.NewValidationError("PK", err.Error())
	}

	// Insert the expanded fields as PK, SK and GSI keys
	for k, v := range expanded {
		if v == "" {
			continue
		}
		item[attributeName(k)] = &types.AttributeValueMemberS{Value: v}
	}
	item[EntityTypeAttribute] = &types.AttributeValueMemberS{Value: call.Type()}

	return &sdk.PutItemInput{
		TableName:           &b.tableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	}, nil
}

func (b *Backend) updateInput(call *datastore.Call, key map[string]types.AttributeValue) (*sdk.UpdateItemInput, error) {
	updates := make(map[string]any, len(call.Data))
	for k, v := range call.Data {
		if k == call.Definition.Key() {
			continue
		}
		updates[k] = v
	}

	updateExpr, exprAttrNames, exprAttrValues, err := buildUpdateExpression(updates)
	if err != nil {
		return nil, errors.NewValidationError("data", err.Error())
	}

	return &sdk.UpdateItemInput{
		TableName:                 &b.tableName,
		Key:                       key,
		UpdateExpression:          &updateExpr,
		ExpressionAttributeNames:  exprAttrNames,
		ExpressionAttributeValues: exprAttrValues,
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		ReturnValues:              types.ReturnValueAllNew,
	}, nil
}

// Do issues one DynamoDB call, retrying throttled requests
func (b *Backend) Do(ctx context.Context, call *datastore.Call, req *pager.Request) (pager.Raw, error) {
	in, ok := req.Data.(*Input)
	if !ok {
		return pager.Raw{}, fmt.Errorf("dynamodb: unexpected request data %T", req.Data)
	}

	indexMap, _ := b.registry.IndexMap(call.Type())
	strip := keyAttributes(indexMap)

	var body any
	err := withRetry(ctx, b.retry, func() error {
		var err error
		switch {
		case in.Get != nil:
			var out *sdk.GetItemOutput
			if out, err = b.client.GetItem(ctx, in.Get); err == nil {
				if out.Item == nil {
					return errors.NewNotFoundError(call.Operation.String(), call.Type(), call.ID.String())
				}
				body, err = decodeItem(out.Item, strip)
			}
		case in.Put != nil:
			if _, err = b.client.PutItem(ctx, in.Put); err == nil {
				body, err = decodeItem(in.Put.Item, strip)
			}
		case in.Update != nil:
			var out *sdk.UpdateItemOutput
			if out, err = b.client.UpdateItem(ctx, in.Update); err == nil {
				body, err = decodeItem(out.Attributes, strip)
			}
		case in.Delete != nil:
			_, err = b.client.DeleteItem(ctx, in.Delete)
		case in.Query != nil:
			var out *sdk.QueryOutput
			if out, err = b.client.Query(ctx, in.Query); err == nil {
				body, err = decodeOutput(out, strip)
			}
		default:
			err = fmt.Errorf("dynamodb: empty request")
		}
		return err
	})
	if err != nil {
		return pager.Raw{}, b.mapError(call, req, err)
	}

	return pager.Raw{Body: body}, nil
}

func (b *Backend) mapError(call *datastore.Call, req *pager.Request, err error) error {
	if errors.IsNotFound(err) {
		return err
	}

	var cfe *types.ConditionalCheckFailedException
	if errors.As(err, &cfe) {
		if call.Operation == datastore.Create {
			return errors.NewValidationError(call.Definition.Key(), fmt.Sprintf("%s already exists", call.Type()))
		}
		return errors.NewNotFoundError(call.Operation.String(), call.Type(), call.ID.String())
	}

	return errors.NewTransportError(req.Method, req.URL, 0, err)
}

func decodeItem(item map[string]types.AttributeValue, strip map[string]bool) (map[string]any, error) {
	var m map[string]any
	if err := attributevalue.UnmarshalMap(item, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	for k := range strip {
		delete(m, k)
	}
	return m, nil
}

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// macros returns the field names referenced by template, in order
func macros(template string) []string {
	var names []string
	for _, m := range macroPattern.FindAllStringSubmatch(template, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}

// expandMacros replaces each {field} in the index map with the field's value.
// Fields missing from values expand to "".
func expandMacros(indexMap map[string]string, values map[string]any) (map[string]string, error) {
	// Convert values to a map of attribute values
	av, err := attributevalue.MarshalMap(values)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key values: %w", err)
	}

	res := make(map[string]string, len(indexMap))
	for fieldName, template := range indexMap {
		missing := false
		expanded := macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
			s, ok := attributeString(av[strings.Trim(macro, "{}")])
			if !ok {
				missing = true
			}
			return s
		})
		if missing {
			expanded = ""
		}
		res[fieldName] = expanded
	}

	return res, nil
}

// attributeString renders scalar attribute values used in keys
func attributeString(val types.AttributeValue) (string, bool) {
	switch tv := val.(type) {
	case *types.AttributeValueMemberS:
		return tv.Value, tv.Value != ""
	case *types.AttributeValueMemberN:
		return tv.Value, true
	case *types.AttributeValueMemberBOOL:
		return fmt.Sprintf("%v", tv.Value), true
	}
	return "", false
}

// expandStringKey replaces every macro in the PK and SK templates with key
func expandStringKey(indexMap map[string]string, key string) map[string]string {
	expanded := make(map[string]string, 2)
	for _, field := range []string{"PK", "SK"} {
		if template, ok := indexMap[field]; ok {
			expanded[field] = macroPattern.ReplaceAllLiteralString(template, key)
		}
	}
	return expanded
}

// buildKeyFromExpanded builds a DynamoDB key from the expanded index map.
// It requires non-empty values for "PK" and "SK".
func buildKeyFromExpanded(expanded map[string]string) (map[string]types.AttributeValue, error) {
	pk, okPK := expanded["PK"]
	sk, okSK := expanded["SK"]

	if !okPK || !okSK || pk == "" || sk == "" {
		return nil, fmt.Errorf("expanded index map missing valid PK or SK")
	}

	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}, nil
}

// buildUpdateExpression transforms a map of field->value into:
//   - an "update expression" (e.g., "SET #f0 = :v0, #f1 = :v1")
//   - a corresponding map of expression attribute names
//   - a corresponding map of expression attribute values
//
// Fields are numbered in name order.
func buildUpdateExpression(updates map[string]any) (string, map[string]string, map[string]types.AttributeValue, error) {
	if len(updates) == 0 {
		return "", nil, nil, fmt.Errorf("no updates provided")
	}

	fields := make([]string, 0, len(updates))
	for field := range updates {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	setClauses := make([]string, 0, len(updates))
	exprAttrNames := make(map[string]string, len(updates))
	exprAttrValues := make(map[string]types.AttributeValue, len(updates))

	for i, field := range fields {
		placeholderName := fmt.Sprintf("#f%d", i)
		placeholderValue := fmt.Sprintf(":v%d", i)

		av, err := attributevalue.Marshal(updates[field])
		if err != nil {
			return "", nil, nil, fmt.Errorf("unhandled update value type for field '%s': %w", field, err)
		}

		setClauses = append(setClauses, fmt.Sprintf("%s = %s", placeholderName, placeholderValue))
		exprAttrNames[placeholderName] = field
		exprAttrValues[placeholderValue] = av
	}

	return "SET " + strings.Join(setClauses, ", "), exprAttrNames, exprAttrValues, nil
}

// RetryOptions control retries of throttled DynamoDB calls
type RetryOptions struct {
	MaxRetries int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
}

// DefaultRetryOptions retries three times starting at 100ms
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{MaxRetries: 3, Backoff: 100 * time.Millisecond}
}
