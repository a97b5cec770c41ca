package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"transwise/internal/core"
)

// DynamoDBTables names the tables and the LR-number index used by the DynamoDB stores.
type DynamoDBTables struct {
	Counters       string
	Bookings       string
	BookingLRIndex string
}

type dynamoCounter struct {
	PK            string `dynamodbav:"pk"`
	CompanyCode   string `dynamodbav:"company_code"`
	BranchCode    string `dynamodbav:"branch_code"`
	FinancialYear string `dynamodbav:"financial_year"`
	CurrentSerial int64  `dynamodbav:"current_serial"`
	UpdatedAt     string `dynamodbav:"updated_at"`
}

// DynamoDBCounterStore stores one item per scope and advances it with a
// conditional put on the value it read.
type DynamoDBCounterStore struct {
	client *dynamodb.Client
	table  string
	retry  RetryConfig
}

func NewDynamoDBCounterStore(client *dynamodb.Client, table string, retry RetryConfig) *DynamoDBCounterStore {
	return &DynamoDBCounterStore{client: client, table: table, retry: retry}
}

func (s *DynamoDBCounterStore) Get(ctx context.Context, scope core.ScopeKey) (int64, error) {
	c, err := s.read(ctx, scope)
	if err != nil {
		return 0, err
	}
	return c.CurrentSerial, nil
}

func (s *DynamoDBCounterStore) read(ctx context.Context, scope core.ScopeKey) (*dynamoCounter, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: scope.String()}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read lr sequence")
	}
	var c dynamoCounter
	if out.Item == nil {
		return &c, nil
	}
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, errors.Wrap(err, "failed to decode lr sequence")
	}
	return &c, nil
}

// Update reads the item, applies fn and writes it back only if nobody else
// advanced it in between. A failed condition is a conflict and is retried.
func (s *DynamoDBCounterStore) Update(ctx context.Context, scope core.ScopeKey, fn core.UpdateFunc) (int64, error) {
	var next int64
	err := retryOnConflict(ctx, s.retry, func() error {
		current, err := s.read(ctx, scope)
		if err != nil {
			return err
		}
		n, err := fn(current.CurrentSerial)
		if err != nil {
			return err
		}

		item, err := attributevalue.MarshalMap(dynamoCounter{
			PK:            scope.String(),
			CompanyCode:   scope.CompanyCode,
			BranchCode:    scope.BranchCode,
			FinancialYear: scope.FinancialYear,
			CurrentSerial: n,
			UpdatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return errors.Wrap(err, "failed to encode lr sequence")
		}

		_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(s.table),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(pk) OR current_serial = :expected"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(current.CurrentSerial, 10)},
			},
		})
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return core.WithKind(errWriteConflict, err, "lr sequence changed since read")
		}
		if err != nil {
			return errors.Wrap(err, "failed to write lr sequence")
		}
		next = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *DynamoDBCounterStore) List(ctx context.Context) ([]core.SequenceCounter, error) {
	var out []core.SequenceCounter
	p := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{TableName: aws.String(s.table)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list lr sequences")
		}
		var items []dynamoCounter
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, errors.Wrap(err, "failed to decode lr sequences")
		}
		for _, c := range items {
			updated, _ := time.Parse(time.RFC3339Nano, c.UpdatedAt)
			out = append(out, core.SequenceCounter{
				Scope:         core.ScopeKey{CompanyCode: c.CompanyCode, BranchCode: c.BranchCode, FinancialYear: c.FinancialYear},
				CurrentSerial: c.CurrentSerial,
				UpdatedAt:     updated,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scope.String() < out[j].Scope.String() })
	return out, nil
}

// dynamoBooking is keyed by company_code with a sort key of creation time and id,
// so a query on the partition returns newest first when read backwards.
type dynamoBooking struct {
	CompanyCode   string `dynamodbav:"company_code"`
	SK            string `dynamodbav:"sk"`
	ID            string `dynamodbav:"id"`
	BranchCode    string `dynamodbav:"branch_code"`
	FinancialYear string `dynamodbav:"financial_year"`
	LRNumber      string `dynamodbav:"lr_number"`
	ManualNumber  bool   `dynamodbav:"manual_number"`
	BookingDate   string `dynamodbav:"booking_date"`
	Consignor     string `dynamodbav:"consignor"`
	Consignee     string `dynamodbav:"consignee"`
	FromLocation  string `dynamodbav:"from_location"`
	ToLocation    string `dynamodbav:"to_location"`
	Packages      int    `dynamodbav:"packages"`
	Weight        string `dynamodbav:"weight"`
	Freight       string `dynamodbav:"freight"`
	PaymentMode   string `dynamodbav:"payment_mode"`
	CreatedAt     string `dynamodbav:"created_at"`
}

func toDynamoBooking(b *core.Booking) dynamoBooking {
	created := b.CreatedAt.UTC().Format(sortableTimeLayout)
	return dynamoBooking{
		CompanyCode:   b.CompanyCode,
		SK:            created + "#" + b.ID,
		ID:            b.ID,
		BranchCode:    b.BranchCode,
		FinancialYear: b.FinancialYear,
		LRNumber:      b.LRNumber,
		ManualNumber:  b.ManualNumber,
		BookingDate:   b.BookingDate.Format("2006-01-02"),
		Consignor:     b.Consignor,
		Consignee:     b.Consignee,
		FromLocation:  b.FromLocation,
		ToLocation:    b.ToLocation,
		Packages:      b.Packages,
		Weight:        b.Weight.String(),
		Freight:       b.Freight.String(),
		PaymentMode:   string(b.PaymentMode),
		CreatedAt:     created,
	}
}

func (d dynamoBooking) toCore() (core.Booking, error) {
	b := core.Booking{
		ID:            d.ID,
		CompanyCode:   d.CompanyCode,
		BranchCode:    d.BranchCode,
		FinancialYear: d.FinancialYear,
		LRNumber:      d.LRNumber,
		ManualNumber:  d.ManualNumber,
		Consignor:     d.Consignor,
		Consignee:     d.Consignee,
		FromLocation:  d.FromLocation,
		ToLocation:    d.ToLocation,
		Packages:      d.Packages,
		PaymentMode:   core.PaymentMode(d.PaymentMode),
	}
	var err error
	if b.BookingDate, err = time.Parse("2006-01-02", d.BookingDate); err != nil {
		return b, err
	}
	if b.CreatedAt, err = time.Parse(sortableTimeLayout, d.CreatedAt); err != nil {
		return b, err
	}
	if b.Weight, err = decimal.NewFromString(d.Weight); err != nil {
		return b, err
	}
	if b.Freight, err = decimal.NewFromString(d.Freight); err != nil {
		return b, err
	}
	return b, nil
}

// DynamoDBBookingStore looks LR numbers up through a global secondary index on
// (company_code, lr_number). Index reads are eventually consistent, which the
// advisory uniqueness check tolerates.
type DynamoDBBookingStore struct {
	client *dynamodb.Client
	tables DynamoDBTables
}

func NewDynamoDBBookingStore(client *dynamodb.Client, tables DynamoDBTables) *DynamoDBBookingStore {
	return &DynamoDBBookingStore{client: client, tables: tables}
}

func (s *DynamoDBBookingStore) lrQuery(companyCode, lrNumber string) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Bookings),
		IndexName:              aws.String(s.tables.BookingLRIndex),
		KeyConditionExpression: aws.String("company_code = :c AND lr_number = :n"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: companyCode},
			":n": &types.AttributeValueMemberS{Value: lrNumber},
		},
	}
}

func (s *DynamoDBBookingStore) CountByLRNumber(ctx context.Context, companyCode, lrNumber string) (int, error) {
	in := s.lrQuery(companyCode, lrNumber)
	in.Select = types.SelectCount

	n := 0
	p := dynamodb.NewQueryPaginator(s.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, errors.Wrap(err, "failed to count bookings")
		}
		n += int(page.Count)
	}
	return n, nil
}

func (s *DynamoDBBookingStore) Insert(ctx context.Context, b *core.Booking) error {
	item, err := attributevalue.MarshalMap(toDynamoBooking(b))
	if err != nil {
		return errors.Wrap(err, "failed to encode booking")
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Bookings),
		Item:      item,
	})
	if err != nil {
		return errors.Wrap(err, "failed to insert booking")
	}
	return nil
}

func (s *DynamoDBBookingStore) GetByLRNumber(ctx context.Context, companyCode, lrNumber string) (*core.Booking, error) {
	var found []dynamoBooking
	p := dynamodb.NewQueryPaginator(s.client, s.lrQuery(companyCode, lrNumber))
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get booking")
		}
		var items []dynamoBooking
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, errors.Wrap(err, "failed to decode booking")
		}
		found = append(found, items...)
	}
	if len(found) == 0 {
		return nil, errors.Wrapf(core.ErrBookingNotFound, "%s", lrNumber)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].SK > found[j].SK })
	b, err := found[0].toCore()
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode booking")
	}
	return &b, nil
}

func (s *DynamoDBBookingStore) List(ctx context.Context, filter core.BookingFilter) ([]core.Booking, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Bookings),
		KeyConditionExpression: aws.String("company_code = :c"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: filter.CompanyCode},
		},
		ScanIndexForward: aws.Bool(false),
	}
	var conds []string
	if filter.BranchCode != "" {
		conds = append(conds, "branch_code = :b")
		in.ExpressionAttributeValues[":b"] = &types.AttributeValueMemberS{Value: filter.BranchCode}
	}
	if filter.FinancialYear != "" {
		conds = append(conds, "financial_year = :fy")
		in.ExpressionAttributeValues[":fy"] = &types.AttributeValueMemberS{Value: filter.FinancialYear}
	}
	if len(conds) > 0 {
		in.FilterExpression = aws.String(strings.Join(conds, " AND "))
	}

	var out []core.Booking
	p := dynamodb.NewQueryPaginator(s.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list bookings")
		}
		var items []dynamoBooking
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, errors.Wrap(err, "failed to decode bookings")
		}
		for _, item := range items {
			b, err := item.toCore()
			if err != nil {
				return nil, errors.Wrap(err, "failed to decode booking")
			}
			out = append(out, b)
			if filter.Limit > 0 && len(out) == filter.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// EnsureDynamoDBTables creates the counter and booking tables on demand billing
// and waits until both are active. Tables that already exist are left alone.
func EnsureDynamoDBTables(ctx context.Context, client *dynamodb.Client, tables DynamoDBTables) error {
	inputs := []*dynamodb.CreateTableInput{
		{
			TableName:   aws.String(tables.Counters),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			},
		},
		{
			TableName:   aws.String(tables.Bookings),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String("company_code"), AttributeType: types.ScalarAttributeTypeS},
				{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
				{AttributeName: aws.String("lr_number"), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("company_code"), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
			},
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				{
					IndexName: aws.String(tables.BookingLRIndex),
					KeySchema: []types.KeySchemaElement{
						{AttributeName: aws.String("company_code"), KeyType: types.KeyTypeHash},
						{AttributeName: aws.String("lr_number"), KeyType: types.KeyTypeRange},
					},
					Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
				},
			},
		},
	}

	for _, in := range inputs {
		_, err := client.CreateTable(ctx, in)
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "failed to create table %s", aws.ToString(in.TableName))
		}
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	for _, in := range inputs {
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: in.TableName}, 2*time.Minute); err != nil {
			return errors.Wrapf(err, "table %s did not become active", aws.ToString(in.TableName))
		}
	}
	return nil
}

var (
	_ core.CounterStore = (*DynamoDBCounterStore)(nil)
	_ core.BookingStore = (*DynamoDBBookingStore)(nil)
)
