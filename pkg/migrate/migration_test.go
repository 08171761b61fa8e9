package migrate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftsql/drift/pkg/migrate"
)

func TestSource_KeepsChronologicalOrder(t *testing.T) {
	src, err := migrate.NewSource(
		&migrate.Migration{ID: "20160101000000_Second", Name: "Second", Up: &migrate.Plan{}},
		&migrate.Migration{ID: "20150302100930_First", Name: "First", Up: &migrate.Plan{}},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"20150302100930_First", "20160101000000_Second"}, src.IDs())

	all := src.All()
	require.Len(t, all, 2)
	assert.Equal(t, "First", all[0].Name)
	assert.Equal(t, "Second", all[1].Name)
}

func TestSource_RejectsDuplicateID(t *testing.T) {
	src, err := migrate.NewSource(
		&migrate.Migration{ID: "20150302100930_First", Name: "First", Up: &migrate.Plan{}},
	)
	require.NoError(t, err)

	err = src.Add(&migrate.Migration{ID: "20150302100930_First", Name: "First", Up: &migrate.Plan{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestSource_RejectsMalformedID(t *testing.T) {
	_, err := migrate.NewSource(
		&migrate.Migration{ID: "First", Name: "First", Up: &migrate.Plan{}},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, migrate.ErrMalformedID)
}

func TestSource_Pending(t *testing.T) {
	src, err := migrate.NewSource(
		&migrate.Migration{ID: "20150302100930_First", Name: "First", Up: &migrate.Plan{}},
		&migrate.Migration{ID: "20150302100931_Second", Name: "Second", Up: &migrate.Plan{}},
		&migrate.Migration{ID: "20150302100932_Third", Name: "Third", Up: &migrate.Plan{}},
	)
	require.NoError(t, err)

	pending, unknown := src.Pending([]string{"20150302100930_First"})
	assert.Empty(t, unknown)
	require.Len(t, pending, 2)
	assert.Equal(t, "Second", pending[0].Name)
	assert.Equal(t, "Third", pending[1].Name)
}

func TestSource_PendingReportsUnknownIDs(t *testing.T) {
	src, err := migrate.NewSource(
		&migrate.Migration{ID: "20150302100930_First", Name: "First", Up: &migrate.Plan{}},
	)
	require.NoError(t, err)

	pending, unknown := src.Pending([]string{
		"20150302100930_First",
		"20990101000000_FromTheFuture",
	})
	assert.Empty(t, pending)
	assert.Equal(t, []string{"20990101000000_FromTheFuture"}, unknown)
}

func TestMigration_Reversible(t *testing.T) {
	m := &migrate.Migration{ID: "20150302100930_First", Up: &migrate.Plan{}}
	assert.False(t, m.Reversible())

	m.Down = &migrate.Plan{}
	assert.True(t, m.Reversible())
}
