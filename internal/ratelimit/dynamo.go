package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ttlSlack keeps expired records readable slightly past the window end so a
// denied caller still gets accurate reset metadata before DynamoDB TTL
// collects the item.
const ttlSlack = 10 * time.Minute

// dynamodbAPI is the minimal DynamoDB interface required by Dynamo.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Dynamo is a fixed-window limiter backed by a DynamoDB table, giving all
// serverless instances one shared view of a client's quota. Expired records
// are collected by the table's native TTL instead of a sweep goroutine.
type Dynamo struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// NewDynamo creates a Dynamo limiter over the given table. The table needs a
// string partition key PK and TTL enabled on the ttl attribute.
func NewDynamo(api dynamodbAPI, tableName string) (*Dynamo, error) {
	if api == nil {
		return nil, errors.New("ratelimit: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("ratelimit: table name must not be empty")
	}
	return &Dynamo{api: api, tableName: tableName, now: time.Now}, nil
}

func clientPK(identifier string) string {
	return "CLIENT#" + identifier
}

// Check applies the fixed-window policy against the shared table. The write
// path is two conditional attempts: claim a fresh window, else increment
// within the live one. Whoever loses both conditions is over the limit.
func (d *Dynamo) Check(ctx context.Context, identifier string, maxRequests int, window time.Duration) (Result, error) {
	for attempt := 0; ; attempt++ {
		now := d.now()
		reset := now.Add(window)

		claimed, err := d.claimFreshWindow(ctx, identifier, now, reset)
		if err != nil {
			return Result{}, err
		}
		if claimed {
			return Result{Allowed: true, Limit: maxRequests, Remaining: maxRequests - 1, ResetTime: reset}, nil
		}

		count, storedReset, incremented, err := d.increment(ctx, identifier, maxRequests, now)
		if err != nil {
			return Result{}, err
		}
		if incremented {
			return Result{Allowed: true, Limit: maxRequests, Remaining: maxRequests - count, ResetTime: storedReset}, nil
		}

		res, err := d.denied(ctx, identifier, maxRequests, now, reset)
		if err != nil {
			return Result{}, err
		}
		// The stored window can expire between the failed increment and the
		// denied read; that window is claimable, so go around once more
		// instead of denying against a reset already in the past.
		if !res.ResetTime.After(now) {
			if attempt == 0 {
				continue
			}
			res.RetryAfter = 1
		}
		return res, nil
	}
}

// claimFreshWindow writes a count=1 record when none exists or the stored
// window has passed. Returns false on a conditional-check failure, meaning a
// live window is already in place.
func (d *Dynamo) claimFreshWindow(ctx context.Context, identifier string, now, reset time.Time) (bool, error) {
	_, err := d.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item: map[string]types.AttributeValue{
			"PK":        &types.AttributeValueMemberS{Value: clientPK(identifier)},
			"count":     &types.AttributeValueMemberN{Value: "1"},
			"resetTime": &types.AttributeValueMemberN{Value: millis(reset)},
			"ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(reset.Add(ttlSlack).Unix(), 10)},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) OR resetTime < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: millis(now)},
		},
	})
	if err == nil {
		return true, nil
	}
	if isConditionalCheckFailed(err) {
		return false, nil
	}
	return false, fmt.Errorf("ratelimit: claim window: %w", err)
}

// increment bumps the live window's count while it is under the limit.
// Returns incremented=false on a conditional-check failure (over the limit,
// or the window flipped between the two calls).
func (d *Dynamo) increment(ctx context.Context, identifier string, maxRequests int, now time.Time) (count int, reset time.Time, incremented bool, err error) {
	out, err := d.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: clientPK(identifier)},
		},
		UpdateExpression:    aws.String("ADD #c :one"),
		ConditionExpression: aws.String("#c < :max AND resetTime >= :now"),
		ExpressionAttributeNames: map[string]string{
			"#c": "count",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":max": &types.AttributeValueMemberN{Value: strconv.Itoa(maxRequests)},
			":now": &types.AttributeValueMemberN{Value: millis(now)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return 0, time.Time{}, false, nil
		}
		return 0, time.Time{}, false, fmt.Errorf("ratelimit: increment: %w", err)
	}

	count, err = numberAttr(out.Attributes, "count")
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("ratelimit: increment: %w", err)
	}
	resetMs, err := int64Attr(out.Attributes, "resetTime")
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("ratelimit: increment: %w", err)
	}
	return count, time.UnixMilli(resetMs), true, nil
}

// denied reads the record for reset metadata. The record itself is left
// untouched.
func (d *Dynamo) denied(ctx context.Context, identifier string, maxRequests int, now, fallbackReset time.Time) (Result, error) {
	out, err := d.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: clientPK(identifier)},
		},
		ConsistentRead: aws.Bool(true),
	})

	reset := fallbackReset
	if err == nil && len(out.Item) > 0 {
		if resetMs, attrErr := int64Attr(out.Item, "resetTime"); attrErr == nil {
			reset = time.UnixMilli(resetMs)
		}
	}
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: read denied record: %w", err)
	}

	return Result{
		Allowed:    false,
		Limit:      maxRequests,
		Remaining:  0,
		ResetTime:  reset,
		RetryAfter: retryAfterSeconds(reset.Sub(now)),
	}, nil
}

func millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func numberAttr(item map[string]types.AttributeValue, key string) (int, error) {
	n, err := int64Attr(item, key)
	return int(n), err
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
