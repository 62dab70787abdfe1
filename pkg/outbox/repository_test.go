package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
)

func seedOutbox(t *testing.T, conn *gorm.DB, createdAt time.Time, publishedAt *time.Time, attempts int) models.OutboxEvent {
	t.Helper()
	row := models.OutboxEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateCustomerOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1,"data":{}}`),
		CreatedAt:     createdAt,
		PublishedAt:   publishedAt,
		AttemptCount:  attempts,
	}
	require.NoError(t, conn.Create(&row).Error)
	return row
}

func TestFetchUnpublishedSkipsPublishedAndExhausted(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	base := time.Now().Add(-time.Hour).UTC()
	published := base

	second := seedOutbox(t, client.DB(), base.Add(2*time.Minute), nil, 2)
	first := seedOutbox(t, client.DB(), base.Add(time.Minute), nil, 0)
	seedOutbox(t, client.DB(), base, &published, 0)
	seedOutbox(t, client.DB(), base, nil, 5)

	rows, err := repo.FetchUnpublishedForPublish(client.DB(), 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].ID)
	assert.Equal(t, second.ID, rows[1].ID)

	_, err = repo.FetchUnpublishedForPublish(nil, 10, 5)
	assert.Error(t, err)
}

func TestMarkTransitions(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	conn := client.DB()
	row := seedOutbox(t, conn, time.Now(), nil, 0)

	require.NoError(t, repo.MarkFailedTx(conn, row.ID, errors.New("broker down")))
	require.NoError(t, repo.MarkFailedTx(conn, row.ID, errors.New("broker still down")))
	var got models.OutboxEvent
	require.NoError(t, conn.First(&got, "id = ?", row.ID).Error)
	assert.Equal(t, 2, got.AttemptCount)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "broker still down", *got.LastError)

	require.NoError(t, repo.MarkTerminalTx(conn, row.ID, errors.New("gave up"), 10))
	var terminal models.OutboxEvent
	require.NoError(t, conn.First(&terminal, "id = ?", row.ID).Error)
	assert.Equal(t, 10, terminal.AttemptCount)
	assert.Nil(t, terminal.PublishedAt)

	other := seedOutbox(t, conn, time.Now(), nil, 0)
	require.NoError(t, repo.MarkPublishedTx(conn, other.ID))
	var published models.OutboxEvent
	require.NoError(t, conn.First(&published, "id = ?", other.ID).Error)
	assert.NotNil(t, published.PublishedAt)
	assert.Zero(t, published.AttemptCount)
}

func TestDeletePublishedBeforeHonoursLimit(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	old := time.Now().Add(-48 * time.Hour).UTC()
	recent := time.Now().UTC()
	for i := 0; i < 3; i++ {
		seedOutbox(t, client.DB(), old, &old, 0)
	}
	keep := seedOutbox(t, client.DB(), recent, &recent, 0)
	pending := seedOutbox(t, client.DB(), old, nil, 0)
	cutoff := time.Now().Add(-24 * time.Hour).UTC()

	n, err := repo.DeletePublishedBefore(context.Background(), cutoff, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = repo.DeletePublishedBefore(context.Background(), cutoff, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var ids []uuid.UUID
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Pluck("id", &ids).Error)
	assert.ElementsMatch(t, []uuid.UUID{keep.ID, pending.ID}, ids)
}
