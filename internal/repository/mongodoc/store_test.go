package mongodoc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver"

	"github.com/iliyamo/tutoring-scheduler/internal/credit"
	"github.com/iliyamo/tutoring-scheduler/internal/model"
	"github.com/iliyamo/tutoring-scheduler/internal/repository"
)

func TestMapErr(t *testing.T) {
	t.Parallel()
	assert.NoError(t, mapErr(nil))
	assert.ErrorIs(t, mapErr(mongo.ErrNoDocuments), repository.ErrNotFound)

	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, mapErr(dup), repository.ErrDuplicate)

	unknown := mongo.CommandError{Code: 50, Labels: []string{labelUnknownCommit}}
	assert.ErrorIs(t, mapErr(unknown), repository.ErrCommitUnknown)

	transient := mongo.CommandError{Code: 112, Labels: []string{driver.TransientTransactionError}}
	assert.ErrorIs(t, mapErr(transient), repository.ErrConflict)

	other := errors.New("boom")
	assert.Equal(t, other, mapErr(other))
}

func TestMergeLegacySkipsOldAndKnownEntries(t *testing.T) {
	t.Parallel()
	usage := credit.LegacyUsage{
		"2026-02-01": {"ava": 1},
		"2026-03-01": {"ava": 2},
		"2026-03-02": {"ben": 1},
	}
	docs := []saleDoc{{Sale: model.Sale{ID: "sale-1"}, CreditsUsed: usage}}
	known := credit.FromLegacyUsage("sale-1", credit.LegacyUsage{"2026-03-02": {"ben": 1}})
	require.Len(t, known, 1)

	got := mergeLegacy([]model.CreditEntry{known[0]}, docs, "2026-02-24")
	require.Len(t, got, 2)
	assert.Equal(t, known[0].IdempotencyKey, got[0].IdempotencyKey)
	assert.Equal(t, "2026-03-01", got[1].WeekAnchor)
	assert.Equal(t, 2, got[1].Delta)
}

func TestIndexesCoverUniquenessRules(t *testing.T) {
	t.Parallel()
	idx := Indexes()
	for _, col := range []string{ColRoster, ColCredits, ColBookings} {
		models := idx[col]
		require.NotEmpty(t, models, col)
		require.NotNil(t, models[0].Options.Unique, col)
		assert.True(t, *models[0].Options.Unique, col)
	}
	assert.NotNil(t, idx[ColBookings][0].Options.PartialFilterExpression)
}
