/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/entitysync/datastore"
	"github.com/suparena/entitysync/errors"
)

// Output is the body of a list page
type Output struct {
	Items []map[string]any
	// LastEvaluatedKey is nil on the last page.
	LastEvaluatedKey map[string]types.AttributeValue
}

// queryInput builds the GSI1 query listing entities of the call's type. The
// GSI1PK template is expanded from the call's filter; its static SK prefix,
// if any, narrows the query with begins_with.
func (b *Backend) queryInput(call *datastore.Call, indexMap map[string]string) (*sdk.QueryInput, error) {
	cfg, _ := GetGSIConfig(ListIndex)

	pkTemplate, ok := indexMap[ListIndex+"PK"]
	if !ok {
		return nil, errors.NewUnsupportedOperationError(call.Operation.String(), call.Type(), "index map has no "+ListIndex+"PK")
	}
	expanded, err := expandMacros(map[string]string{"pk": pkTemplate}, call.Filter)
	if err != nil {
		return nil, err
	}
	if expanded["pk"] == "" {
		return nil, errors.NewUnsupportedOperationError(call.Operation.String(), call.Type(),
			fmt.Sprintf("listing requires filters %v", macros(pkTemplate)))
	}

	keyCondition := "#pk = :pk"
	names := map[string]string{
		"#pk": cfg.PartitionKeyName,
		"#et": EntityTypeAttribute,
	}
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: expanded["pk"]},
		":et": &types.AttributeValueMemberS{Value: call.Type()},
	}

	if skTemplate, ok := indexMap[ListIndex+"SK"]; ok {
		prefix, _, _ := strings.Cut(skTemplate, "{")
		if prefix != "" {
			keyCondition += " AND begins_with(#sk, :sk)"
			names["#sk"] = cfg.SortKeyName
			values[":sk"] = &types.AttributeValueMemberS{Value: prefix}
		}
	}

	return &sdk.QueryInput{
		TableName:                 &b.tableName,
		IndexName:                 aws.String(cfg.IndexName),
		KeyConditionExpression:    aws.String(keyCondition),
		FilterExpression:          aws.String("#et = :et"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}, nil
}

func decodeOutput(out *sdk.QueryOutput, strip map[string]bool) (*Output, error) {
	res := &Output{
		Items:            make([]map[string]any, 0, len(out.Items)),
		LastEvaluatedKey: out.LastEvaluatedKey,
	}
	for _, item := range out.Items {
		m, err := decodeItem(item, strip)
		if err != nil {
			return nil, err
		}
		res.Items = append(res.Items, m)
	}
	return res, nil
}

