package payments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// mockDynamo keeps items per table keyed by transaction_id and understands the
// two condition expressions the Store issues.
type mockDynamo struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue
	putErr error
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{
		tables: map[string]map[string]map[string]types.AttributeValue{},
	}
}

func (m *mockDynamo) table(name string) map[string]map[string]types.AttributeValue {
	if _, ok := m.tables[name]; !ok {
		m.tables[name] = map[string]map[string]types.AttributeValue{}
	}
	return m.tables[name]
}

func pkOf(attrs map[string]types.AttributeValue) (string, error) {
	v, ok := attrs["transaction_id"].(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("no transaction_id attribute")
	}
	return v.Value, nil
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return nil, m.putErr
	}
	tbl := m.table(*params.TableName)
	pk, err := pkOf(params.Item)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(transaction_id)" {
		if _, exists := tbl[pk]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	tbl[pk] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk, err := pkOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.table(*params.TableName)[pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk, err := pkOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, exists := m.table(*params.TableName)[pk]
	if !exists {
		return nil, &types.ConditionalCheckFailedException{}
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "#s = :expected" {
		curr, ok := item["status"].(*types.AttributeValueMemberS)
		expected := params.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberS).Value
		if !ok || curr.Value != expected {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	if v, ok := params.ExpressionAttributeValues[":new"]; ok {
		item["status"] = v
	}
	if v, ok := params.ExpressionAttributeValues[":ua"]; ok {
		item["updated_at"] = v
	}
	if _, ok := params.ExpressionAttributeValues[":inc"]; ok {
		n := 0
		if cur, ok := item["attempts"].(*types.AttributeValueMemberN); ok {
			_ = attributevalue.Unmarshal(cur, &n)
		}
		av, _ := attributevalue.Marshal(n + 1)
		item["attempts"] = av
	}
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func TestStore_CreateAndGet(t *testing.T) {
	mock := newMockDynamo()
	store := NewStore(mock, "charges")

	err := store.Create(context.Background(), Charge{
		TransactionID:  "txn_1",
		IdempotencyKey: "K1",
		Amount:         100,
		Currency:       "GHS",
		Status:         StatusPending,
	})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	got, err := store.Get(context.Background(), "txn_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("charge not stored")
	}
	if got.Amount != 100 || got.Currency != "GHS" || got.Status != StatusPending {
		t.Fatalf("unexpected charge: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}

	missing, err := store.Get(context.Background(), "txn_missing")
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for missing charge, got (%v, %v)", missing, err)
	}
}

func TestStore_CreateDuplicate_Fails(t *testing.T) {
	mock := newMockDynamo()
	store := NewStore(mock, "charges")
	charge := Charge{TransactionID: "txn_dup", Amount: 1, Currency: "USD", Status: StatusPending}

	if err := store.Create(context.Background(), charge); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := store.Create(context.Background(), charge)
	if !errors.Is(err, ErrDuplicateCharge) {
		t.Fatalf("expected ErrDuplicateCharge, got %v", err)
	}
}

func TestStore_CreateDuplicate_GenericAPIError(t *testing.T) {
	mock := newMockDynamo()
	mock.putErr = &smithy.GenericAPIError{Code: "ConditionalCheckFailedException", Message: "exists"}
	store := NewStore(mock, "charges")

	err := store.Create(context.Background(), Charge{TransactionID: "txn_x"})
	if !errors.Is(err, ErrDuplicateCharge) {
		t.Fatalf("expected ErrDuplicateCharge, got %v", err)
	}
}

func TestStore_UpdateStatus_Condition_SuccessAndFail(t *testing.T) {
	mock := newMockDynamo()
	now := time.Now()
	item, _ := attributevalue.MarshalMap(Charge{
		TransactionID: "txn_10",
		Status:        StatusPending,
		Amount:        1.0,
		Currency:      "USD",
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	mock.table("charges")["txn_10"] = item

	store := NewStore(mock, "charges")

	// success: PENDING -> SETTLED
	if err := store.UpdateStatus(context.Background(), "txn_10", StatusPending, StatusSettled); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	// failure: PENDING -> FAILED (but current is SETTLED)
	err := store.UpdateStatus(context.Background(), "txn_10", StatusPending, StatusFailed)
	if !errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("expected ErrStatusMismatch, got %v", err)
	}
}

func TestStore_IncrementAttempts(t *testing.T) {
	mock := newMockDynamo()
	store := NewStore(mock, "charges")
	if err := store.Create(context.Background(), Charge{TransactionID: "txn_a", Status: StatusPending}); err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := store.IncrementAttempts(context.Background(), "txn_a"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	got, err := store.Get(context.Background(), "txn_a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", got.Attempts)
	}
}
