package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/resilience"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return newPostgresStore(mock, nil), mock
}

func TestPostgresStore_InsertAward(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO "awards" \("award_num", "year", .*\) VALUES \(\$1, \$2, .*\) ON CONFLICT \("award_num"\) DO NOTHING`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	inserted, err := s.InsertAward(context.Background(), sampleRecord("20251234"))
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertAward_Existing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT \("award_num"\) DO NOTHING`).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := s.InsertAward(context.Background(), sampleRecord("20251234"))
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertAward_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO "awards"`).WillReturnError(errors.New("connection reset"))

	_, err := s.InsertAward(context.Background(), sampleRecord("20251234"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert award 20251234")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAward_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT award_num, year, .* FROM awards WHERE award_num = \$1`).
		WithArgs("99999999").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetAward(context.Background(), "99999999")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateAward(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE awards SET year = \$1, .* WHERE award_num = \$\d+`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpdateAward(context.Background(), sampleRecord("20251234")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateAward_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE awards SET`).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateAward(context.Background(), sampleRecord("20251234"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAwards_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM awards WHERE year = \$1 AND award = \$2 ORDER BY year, award_num LIMIT \$3`).
		WithArgs(2025, "AM", 10).
		WillReturnError(errors.New("boom"))

	_, err := s.ListAwards(context.Background(), AwardFilter{Year: 2025, Award: "am", Limit: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list awards")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordFailure(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO failed_documents .* ON CONFLICT \(stage, source_id\) DO UPDATE SET`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	entry := resilience.NewDLQEntry("fetch", "2025/1", 2025, &model.FetchError{URL: "https://example.org", StatusCode: 500, Attempts: 3})
	require.NoError(t, s.RecordFailure(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ResolveFailure(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM failed_documents WHERE stage = \$1 AND source_id = \$2`).
		WithArgs("fetch", "2025/1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.ResolveFailure(context.Background(), "fetch", "2025/1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS awards`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close(t *testing.T) {
	closed := false
	s := newPostgresStore(nil, func() { closed = true })
	require.NoError(t, s.Close())
	assert.True(t, closed)
}
