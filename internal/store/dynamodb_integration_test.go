package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/require"

	"transwise/internal/config"
	"transwise/internal/db"
)

// setupTestDynamoDB creates uniquely named tables on TEST_DYNAMODB_ENDPOINT
// (DynamoDB Local or LocalStack) and drops them afterwards.
func setupTestDynamoDB(t *testing.T) (*dynamodb.Client, DynamoDBTables) {
	t.Helper()
	endpoint := os.Getenv("TEST_DYNAMODB_ENDPOINT")
	if endpoint == "" {
		t.Skip("TEST_DYNAMODB_ENDPOINT not set, skipping dynamodb integration test")
	}
	if os.Getenv("AWS_ACCESS_KEY_ID") == "" {
		t.Setenv("AWS_ACCESS_KEY_ID", "local")
		t.Setenv("AWS_SECRET_ACCESS_KEY", "local")
	}

	ctx := context.Background()
	client, err := db.NewDynamoDBClient(ctx, config.DynamoDBConfig{Region: "us-east-1", Endpoint: endpoint})
	require.NoError(t, err)

	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	tables := DynamoDBTables{
		Counters:       "lr_sequences_" + suffix,
		Bookings:       "bookings_" + suffix,
		BookingLRIndex: "company_lr_number",
	}
	require.NoError(t, EnsureDynamoDBTables(ctx, client, tables))
	t.Cleanup(func() {
		for _, name := range []string{tables.Counters, tables.Bookings} {
			_, _ = client.DeleteTable(context.Background(), &dynamodb.DeleteTableInput{TableName: aws.String(name)})
		}
	})
	return client, tables
}

func TestDynamoDBCounterStore(t *testing.T) {
	client, tables := setupTestDynamoDB(t)
	runCounterContract(t, NewDynamoDBCounterStore(client, tables.Counters, DefaultRetryConfig()))
}

func TestDynamoDBBookingStore(t *testing.T) {
	client, tables := setupTestDynamoDB(t)
	runBookingContract(t, NewDynamoDBBookingStore(client, tables))
}
