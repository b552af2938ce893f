package token

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAccessors(t *testing.T) {
	rec := Record{
		"owner":            "alice",
		"root":             "main",
		"cluster":          "east",
		"last-update-user": "bob",
		"run-as-user":      "*",
		"deleted":          true,
		"last-update-time": float64(1735689600000),
	}

	assert.Equal(t, "alice", rec.Owner())
	assert.Equal(t, "main", rec.Root())
	assert.Equal(t, "east", rec.Cluster())
	assert.Equal(t, "bob", rec.LastUpdateUser())
	assert.Equal(t, "*", rec.RunAsUser())
	assert.True(t, rec.Deleted())
	assert.Equal(t, int64(1735689600000), rec.LastUpdateTime())
	assert.Equal(t, "2025-01-01T00:00:00Z", rec.LastUpdateTimeISO())
}

func TestRecordEmpty(t *testing.T) {
	assert.True(t, Record{}.Empty())
	assert.True(t, Record{"deleted": true, "last-update-user": "x"}.Empty())
	assert.False(t, Record{"cmd": "/x"}.Empty())
	assert.False(t, Record{"owner": "alice"}.Empty())
}

func TestWithHistoryBound(t *testing.T) {
	depth := 3
	current := Record{"cmd": "/v0", "version": "0"}

	// Push a chain of updates and verify the bound holds throughout.
	for i := 1; i <= 6; i++ {
		next := Record{"cmd": fmt.Sprintf("/v%d", i), "version": fmt.Sprint(i)}
		current = WithHistory(next, current, depth)

		prev := current.Previous()
		require.LessOrEqual(t, len(prev), depth)
		// Newest first.
		assert.Equal(t, fmt.Sprintf("/v%d", i-1), prev[0]["cmd"])
		// History entries never nest their own history.
		for _, p := range prev {
			assert.NotContains(t, p, KeyPrevious)
		}
	}

	prev := current.Previous()
	require.Len(t, prev, depth)
	assert.Equal(t, "/v5", prev[0]["cmd"])
	assert.Equal(t, "/v3", prev[2]["cmd"])
}

func TestWithHistoryZeroDepth(t *testing.T) {
	out := WithHistory(Record{"cmd": "/new"}, Record{"cmd": "/old"}, 0)
	assert.NotContains(t, out, KeyPrevious)
}

func TestPreviousAfterJSONRoundTrip(t *testing.T) {
	rec := WithHistory(Record{"cmd": "/new"}, Record{"cmd": "/old"}, 5)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	var decoded Record
	require.NoError(t, json.Unmarshal(raw, &decoded))

	prev := decoded.Previous()
	require.Len(t, prev, 1)
	assert.Equal(t, "/old", prev[0]["cmd"])
}

func TestUserProjection(t *testing.T) {
	rec := Record{
		"cmd":              "/x",
		"owner":            "alice",
		"root":             "main",
		"deleted":          true,
		"last-update-user": "bob",
		"previous":         []Record{{"cmd": "/old"}},
		"env":              map[string]any{},
	}
	got := rec.UserProjection()
	assert.Equal(t, Record{"cmd": "/x", "owner": "alice"}, got)
}
