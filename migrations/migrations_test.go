package migrations

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSHasPairedMigrations(t *testing.T) {
	ups, err := fs.Glob(FS, "*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(FS, "*.down.sql")
	require.NoError(t, err)

	assert.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}

func TestStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT version, dirty FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version", "dirty"}).AddRow(int64(2), false))

	state, err := Status(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, State{Version: 2, Applied: true}, state)
	assert.Equal(t, "version 2", state.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT version, dirty FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version", "dirty"}))

	state, err := Status(context.Background(), db)
	require.NoError(t, err)
	assert.False(t, state.Applied)
	assert.Equal(t, "no migrations applied", state.String())
}

func TestStatusDirtyAndError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT version, dirty FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version", "dirty"}).AddRow(int64(1), true))
	mock.ExpectQuery("SELECT version, dirty FROM schema_migrations").
		WillReturnError(errors.New("relation does not exist"))

	state, err := Status(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, "version 1 (dirty)", state.String())

	_, err = Status(context.Background(), db)
	assert.ErrorContains(t, err, "migrations: status")
}
