package worker

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/model"
	"tasktracker/internal/platform/database"
	"tasktracker/internal/repository"
)

func newTestWorker(t *testing.T) (*AccountEventWorker, *repository.AccountEventRepository) {
	t.Helper()
	db, err := database.New(context.Background(), "sqlite", filepath.Join(t.TempDir(), "worker.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	repo := repository.NewAccountEventRepository(db)
	return NewAccountEventWorker(nil, repo, "account.events", nil), repo
}

func TestHandlePersistsEvent(t *testing.T) {
	w, repo := newTestWorker(t)
	occurred := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	body, err := json.Marshal(model.AccountEvent{ID: 55, UserID: 3, Username: "alice", Kind: model.AccountEventUpdated, OccurredAt: occurred})
	require.NoError(t, err)
	require.NoError(t, w.handle(body))

	events, err := repo.ListByUserID(3)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "alice", events[0].Username)
	assert.Equal(t, model.AccountEventUpdated, events[0].Kind)
	assert.True(t, occurred.Equal(events[0].OccurredAt))
	assert.NotEqual(t, uint(55), events[0].ID)
}

func TestHandleRejectsBadPayloads(t *testing.T) {
	w, _ := newTestWorker(t)

	require.Error(t, w.handle([]byte("{not json")))
	require.Error(t, w.handle([]byte(`{"user_id":0,"kind":"deleted"}`)))
	require.Error(t, w.handle([]byte(`{"user_id":4}`)))
}

func TestCloseWithoutStart(t *testing.T) {
	w, _ := newTestWorker(t)
	w.Close()
}
