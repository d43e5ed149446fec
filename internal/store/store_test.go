package store

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/awards-cli/internal/resilience"
)

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "awards.db"), nil)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	assert.NoError(t, st.Ping(ctx))
	_, err = st.ListFailures(ctx, resilience.DLQFilter{})
	assert.NoError(t, err)
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, "mysql", "dsn", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")

	_, err = Open(ctx, "postgres", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a dsn")
}

func TestListAwardsSQL(t *testing.T) {
	query, args := listAwardsSQL(AwardFilter{Genus: "Paph", Location: "Filoli", Limit: 5, Offset: 10}, dollar)
	assert.True(t, strings.HasSuffix(query, "WHERE lower(genus) = $1 AND lower(location) LIKE $2 ORDER BY year, award_num LIMIT $3 OFFSET $4"))
	assert.Equal(t, []any{"paph", "%filoli%", 5, 10}, args)

	query, args = listAwardsSQL(AwardFilter{}, question)
	assert.True(t, strings.HasSuffix(query, "FROM awards ORDER BY year, award_num"))
	assert.Empty(t, args)
}

func TestUpdateAwardSQL(t *testing.T) {
	query := updateAwardSQL(dollar)
	assert.True(t, strings.HasPrefix(query, "UPDATE awards SET year = $1, award = $2,"))
	assert.NotContains(t, query, "created_at")
	n := len(awardColumns) - 1 // award_num moves to the WHERE clause
	assert.True(t, strings.HasSuffix(query, "WHERE award_num = $"+strconv.Itoa(n)), query)

	args := make([]any, len(awardColumns))
	for i := range args {
		args[i] = awardColumns[i]
	}
	reordered := updateArgs(args)
	require.Len(t, reordered, n)
	assert.Equal(t, "award_num", reordered[n-1])
	assert.Equal(t, "year", reordered[0])
}

