package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/disruption-desk/internal/model"
	"github.com/nhle/disruption-desk/internal/store"
	"github.com/nhle/disruption-desk/tests/testutil"
)

func TestSessionValues(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	_, err := s.GetSessionValue(ctx, "operator")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetSessionValue(ctx, "operator", `{"id":"OP-1"}`))
	got, err := s.GetSessionValue(ctx, "operator")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"OP-1"}`, got)

	require.NoError(t, s.SetSessionValue(ctx, "operator", `{"id":"OP-2"}`))
	got, err = s.GetSessionValue(ctx, "operator")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"OP-2"}`, got)

	require.NoError(t, s.DeleteSessionValue(ctx, "operator"))
	_, err = s.GetSessionValue(ctx, "operator")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Deleting twice is fine.
	assert.NoError(t, s.DeleteSessionValue(ctx, "operator"))
}

func TestExportHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	base := time.Date(2026, 1, 8, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordExport(ctx, store.ExportRecord{
		Format: "csv", Path: "/tmp/a.csv", TicketCount: 3, OperatorID: "OP-1",
		CreatedAt: model.NewTimestamp(base),
	}))
	require.NoError(t, s.RecordExport(ctx, store.ExportRecord{
		Format: "json", Path: "/tmp/b.json", TicketCount: 5, OperatorID: "OP-1",
		CreatedAt: model.NewTimestamp(base.Add(time.Hour)),
	}))

	records, err := s.ListExports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "json", records[0].Format)
	assert.Equal(t, 5, records[0].TicketCount)
	assert.NotEmpty(t, records[0].ID)
	assert.Equal(t, "csv", records[1].Format)

	limited, err := s.ListExports(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecordExportRejectsUnknownFormat(t *testing.T) {
	s := testutil.NewTestStore(t)
	err := s.RecordExport(context.Background(), store.ExportRecord{Format: "pdf", Path: "x"})
	assert.Error(t, err)
}
