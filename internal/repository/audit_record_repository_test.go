package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	cursor := encodeCursor(createdAt, "rec-42")

	gotAt, gotID, err := decodeCursor(cursor)
	require.NoError(t, err)
	assert.Equal(t, "rec-42", gotID)
	assert.True(t, createdAt.Equal(gotAt))
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	cases := []string{
		"not base64 !!!",
		"bm9waXBlCg", // 合法 base64 但没有分隔符
	}
	for _, c := range cases {
		_, _, err := decodeCursor(c)
		assert.Error(t, err, "cursor %q", c)
	}
}

func TestCursorIDMayContainSeparator(t *testing.T) {
	createdAt := time.Now()
	cursor := encodeCursor(createdAt, "id|with|pipes")

	_, gotID, err := decodeCursor(cursor)
	require.NoError(t, err)
	assert.Equal(t, "id|with|pipes", gotID)
}
