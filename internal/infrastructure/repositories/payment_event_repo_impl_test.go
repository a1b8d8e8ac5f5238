package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"lightning-gateway/internal/domain/entities"
)

func TestPaymentEventRepository_CreateAllocatesDenseSeq(t *testing.T) {
	db := newTestDB(t)
	createPaymentEventTables(t, db)
	repo := NewPaymentEventRepository(db)
	ctx := context.Background()

	clientID := uuid.Must(uuid.NewV7())
	paymentA := uuid.Must(uuid.NewV7())
	paymentB := uuid.Must(uuid.NewV7())

	require.NoError(t, repo.Create(ctx, &entities.PaymentEvent{
		ClientID:  clientID,
		PaymentID: paymentA,
		Type:      entities.EventCreated,
		Status:    entities.StatusCreated,
	}))
	require.NoError(t, repo.Create(ctx, &entities.PaymentEvent{
		ClientID:  clientID,
		PaymentID: paymentB,
		Type:      entities.EventCreated,
		Status:    entities.StatusCreated,
	}))
	require.NoError(t, repo.Create(ctx, &entities.PaymentEvent{
		ClientID:  clientID,
		PaymentID: paymentA,
		Type:      entities.EventPaid,
		Status:    entities.StatusPaid,
	}))

	events, err := repo.GetByPaymentID(ctx, paymentA)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.EqualValues(t, 1, events[0].Seq)
	require.EqualValues(t, 3, events[1].Seq)

	last, err := repo.LastSeq(ctx, clientID)
	require.NoError(t, err)
	require.EqualValues(t, 3, last)
}

func TestPaymentEventRepository_ListSince(t *testing.T) {
	db := newTestDB(t)
	createPaymentEventTables(t, db)
	repo := NewPaymentEventRepository(db)
	ctx := context.Background()

	clientID := uuid.Must(uuid.NewV7())
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &entities.PaymentEvent{
			ClientID:  clientID,
			PaymentID: uuid.Must(uuid.NewV7()),
			Type:      entities.EventCreated,
			Status:    entities.StatusCreated,
		}))
	}

	events, err := repo.ListSince(ctx, clientID, 1, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.EqualValues(t, 2, events[0].Seq)
	require.EqualValues(t, 3, events[1].Seq)
}

func TestPaymentEventRepository_LastSeq_NoEvents(t *testing.T) {
	db := newTestDB(t)
	createPaymentEventTables(t, db)
	repo := NewPaymentEventRepository(db)

	seq, err := repo.LastSeq(context.Background(), uuid.Must(uuid.NewV7()))
	require.NoError(t, err)
	require.EqualValues(t, 0, seq)
}

func TestPaymentEventRepository_Create_WithinTxContext(t *testing.T) {
	db := newTestDB(t)
	createPaymentEventTables(t, db)
	repo := NewPaymentEventRepository(db)

	tx, err := db.Begin()
	require.NoError(t, err)
	ctx := context.WithValue(context.Background(), txKey, tx)

	require.NoError(t, repo.Create(ctx, &entities.PaymentEvent{
		ClientID:  uuid.Must(uuid.NewV7()),
		PaymentID: uuid.Must(uuid.NewV7()),
		Type:      entities.EventCreated,
		Status:    entities.StatusCreated,
	}))
	require.NoError(t, tx.Commit())
}
