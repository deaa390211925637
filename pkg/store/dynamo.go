// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/teradata-labs/bobbin/pkg/observability"
)

// Default DynamoDB configuration values.
const (
	DefaultDynamoTableName = "bobbin-sessions"
	DefaultDynamoRegion    = "us-west-2"
)

// DynamoConfig holds configuration for the DynamoDB store.
type DynamoConfig struct {
	// AWS Configuration
	Region          string // Default: AWS_DEFAULT_REGION env var, then us-west-2
	AccessKeyID     string // Optional: if not using IAM role/profile
	SecretAccessKey string // Optional: if not using IAM role/profile
	SessionToken    string // Optional: for temporary credentials
	Profile         string // Optional: AWS profile name from ~/.aws/config

	// TableName is the session table. Default: bobbin-sessions.
	TableName string

	// TTL is how long saved records stay live. Expired records read as
	// absent; DynamoDB's native TTL eventually deletes them. Zero disables
	// expiry.
	TTL time.Duration

	// Tracer receives a span per table operation. Nil disables tracing.
	Tracer observability.Tracer
}

// DynamoStore is a Store backed by a DynamoDB table.
//
// The table keys on (pk S, sk N). Each save puts a full-snapshot item with
// the current time as sort key; loads query the partition descending with
// limit 1. Concurrent writers therefore converge on last-writer-wins
// without conditional writes.
type DynamoStore struct {
	client *dynamodb.Client
	table  string
	ttl    time.Duration
	tracer observability.Tracer
}

// sessionRecord is the DynamoDB item shape. A conversation item carries the
// messages attribute, a reasoning item the reasoning attribute; both are
// JSON blobs stored as strings.
type sessionRecord struct {
	PK             string  `dynamodbav:"pk"`
	SK             float64 `dynamodbav:"sk"`
	Messages       string  `dynamodbav:"messages,omitempty"`
	Reasoning      string  `dynamodbav:"reasoning,omitempty"`
	ExpirationTime int64   `dynamodbav:"expiration_time,omitempty"`
}

// NewDynamoStore creates a DynamoDB-backed store. The client is built
// eagerly but no network call happens until the first operation; call
// EnsureTable to create the table if it may not exist.
func NewDynamoStore(cfg DynamoConfig) (*DynamoStore, error) {
	if cfg.TableName == "" {
		cfg.TableName = DefaultDynamoTableName
	}
	if cfg.Region == "" {
		if envRegion := os.Getenv("AWS_DEFAULT_REGION"); envRegion != "" {
			cfg.Region = envRegion
		} else {
			cfg.Region = DefaultDynamoRegion
		}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NewNoOpTracer()
	}

	// Build AWS config
	var awsCfg aws.Config
	var err error

	// Option 1: Explicit credentials provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg, err = config.LoadDefaultConfig(context.Background(),
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			)),
		)
	} else if cfg.Profile != "" {
		// Option 2: Use named profile
		awsCfg, err = config.LoadDefaultConfig(context.Background(),
			config.WithRegion(cfg.Region),
			config.WithSharedConfigProfile(cfg.Profile),
		)
	} else {
		// Option 3: Use default credentials chain (IAM role, env vars, profile)
		awsCfg, err = config.LoadDefaultConfig(context.Background(),
			config.WithRegion(cfg.Region),
		)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &DynamoStore{
		client: dynamodb.NewFromConfig(awsCfg),
		table:  cfg.TableName,
		ttl:    cfg.TTL,
		tracer: cfg.Tracer,
	}, nil
}

// EnsureTable creates the session table when it doesn't exist and enables
// native TTL on the expiration_time attribute. Safe to call on every
// startup; an existing table is left untouched.
func (s *DynamoStore) EnsureTable(ctx context.Context) error {
	ctx, span := s.tracer.StartSpan(ctx, "dynamo_store.ensure_table",
		observability.WithAttribute("table", s.table))
	defer s.tracer.EndSpan(span)

	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	})
	if err == nil {
		span.SetAttribute("created", "false")
		return nil
	}
	var notFound *ddbtypes.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		span.RecordError(err)
		return fmt.Errorf("failed to describe table %s: %w", s.table, err)
	}

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []ddbtypes.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: ddbtypes.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: ddbtypes.ScalarAttributeTypeN},
		},
		KeySchema: []ddbtypes.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: ddbtypes.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: ddbtypes.KeyTypeRange},
		},
		BillingMode: ddbtypes.BillingModePayPerRequest,
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}, 2*time.Minute); err != nil {
		span.RecordError(err)
		return fmt.Errorf("table %s did not become active: %w", s.table, err)
	}

	_, err = s.client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(s.table),
		TimeToLiveSpecification: &ddbtypes.TimeToLiveSpecification{
			AttributeName: aws.String("expiration_time"),
			Enabled:       aws.Bool(true),
		},
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to enable TTL on table %s: %w", s.table, err)
	}

	span.SetAttribute("created", "true")
	return nil
}

// SaveMessages implements Store.
func (s *DynamoStore) SaveMessages(ctx context.Context, sessionID string, snapshot []byte) error {
	return s.putRecord(ctx, messagesKey(sessionID), sessionID, "messages", time.Now(), snapshot)
}

// LoadMessages implements Store.
func (s *DynamoStore) LoadMessages(ctx context.Context, sessionID string) ([]byte, bool, error) {
	return s.latestRecord(ctx, messagesKey(sessionID), sessionID, "messages")
}

// SaveReasoning implements Store. Saving with the same startedAt replaces
// the item, so a run's incremental updates stay one history entry.
func (s *DynamoStore) SaveReasoning(ctx context.Context, sessionID string, startedAt time.Time, trace []byte) error {
	return s.putRecord(ctx, reasoningKey(sessionID), sessionID, "reasoning", startedAt, trace)
}

// LoadReasoning implements Store.
func (s *DynamoStore) LoadReasoning(ctx context.Context, sessionID string) ([]byte, bool, error) {
	return s.latestRecord(ctx, reasoningKey(sessionID), sessionID, "reasoning")
}

// LoadReasoningHistory implements Store.
func (s *DynamoStore) LoadReasoningHistory(ctx context.Context, sessionID string) ([][]byte, error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanStoreLoad,
		observability.WithAttribute(observability.AttrStoreBackend, "dynamodb"),
		observability.WithAttribute(observability.AttrSessionID, sessionID),
		observability.WithAttribute("record_kind", "reasoning_history"))
	defer s.tracer.EndSpan(span)

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":pk": &ddbtypes.AttributeValueMemberS{Value: reasoningKey(sessionID)},
		},
		ScanIndexForward: aws.Bool(true),
	}

	now := time.Now()
	traces := [][]byte{}
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to query reasoning history: %w", err)
		}

		for _, item := range out.Items {
			var rec sessionRecord
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				span.RecordError(err)
				return nil, fmt.Errorf("failed to unmarshal reasoning record: %w", err)
			}
			if recordExpired(rec.ExpirationTime, now.Unix()) {
				continue
			}
			traces = append(traces, []byte(rec.Reasoning))
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	span.SetAttribute("trace_count", fmt.Sprintf("%d", len(traces)))
	return traces, nil
}

// Close implements Store. The DynamoDB client holds no resources to release.
func (s *DynamoStore) Close() error {
	return nil
}

// putRecord writes a full-snapshot item keyed by (pk, at). The expiration
// clock always starts at write time, so rewrites refresh the TTL.
func (s *DynamoStore) putRecord(ctx context.Context, pk, sessionID, kind string, at time.Time, payload []byte) error {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanStoreSave,
		observability.WithAttribute(observability.AttrStoreBackend, "dynamodb"),
		observability.WithAttribute(observability.AttrSessionID, sessionID),
		observability.WithAttribute("record_kind", kind))
	defer s.tracer.EndSpan(span)

	rec := sessionRecord{
		PK: pk,
		SK: sortKey(at),
	}
	switch kind {
	case "messages":
		rec.Messages = string(payload)
	case "reasoning":
		rec.Reasoning = string(payload)
	}
	if s.ttl > 0 {
		rec.ExpirationTime = time.Now().Add(s.ttl).Unix()
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal %s record: %w", kind, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save %s record: %w", kind, err)
	}

	span.SetAttribute("payload_bytes", fmt.Sprintf("%d", len(payload)))
	return nil
}

// latestRecord queries the newest item in the partition. Expiry is checked
// on that item only: an expired latest record reads as absent even if older
// live items remain, so the session starts fresh.
func (s *DynamoStore) latestRecord(ctx context.Context, pk, sessionID, kind string) ([]byte, bool, error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanStoreLoad,
		observability.WithAttribute(observability.AttrStoreBackend, "dynamodb"),
		observability.WithAttribute(observability.AttrSessionID, sessionID),
		observability.WithAttribute("record_kind", kind))
	defer s.tracer.EndSpan(span)

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":pk": &ddbtypes.AttributeValueMemberS{Value: pk},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("failed to load %s record: %w", kind, err)
	}

	if len(out.Items) == 0 {
		span.SetAttribute("found", "false")
		return nil, false, nil
	}

	var rec sessionRecord
	if err := attributevalue.UnmarshalMap(out.Items[0], &rec); err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("failed to unmarshal %s record: %w", kind, err)
	}

	if recordExpired(rec.ExpirationTime, time.Now().Unix()) {
		span.SetAttribute("found", "false")
		span.SetAttribute("expired", "true")
		return nil, false, nil
	}

	payload := rec.Messages
	if kind == "reasoning" {
		payload = rec.Reasoning
	}

	span.SetAttribute("found", "true")
	return []byte(payload), true, nil
}

// sortKey encodes t as fractional epoch seconds with millisecond precision.
// Numeric sort order matches write order, and items written by older
// deployments with whole-second keys still compare correctly.
func sortKey(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000.0
}

// recordExpired reports whether the expiration epoch (zero = never) is at or
// before now. Both values must use the same unit; DynamoDB records use
// seconds as required by native TTL, SQLite records use milliseconds.
func recordExpired(expiration, now int64) bool {
	return expiration > 0 && expiration <= now
}
