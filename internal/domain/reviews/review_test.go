package reviews

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit(t *testing.T) {
	at := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	r, err := Submit(SubmitParams{ID: "r1", HostelID: "h1", Author: " Anu ", Rating: 4, Text: " clean rooms ", CreatedAt: at})
	require.NoError(t, err)
	assert.Equal(t, "Anu", r.Author)
	assert.Equal(t, "clean rooms", r.Text)
	require.Len(t, r.Events(), 1)
	assert.Equal(t, "review.submitted", r.Events()[0].EventName())

	_, err = Submit(SubmitParams{ID: "r2", Author: "x", Rating: 6})
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = Submit(SubmitParams{ID: "r2", Rating: 3})
	assert.ErrorIs(t, err, ErrAuthorMissing)
}

func TestSubmit_TextLimitCountsRunes(t *testing.T) {
	text := strings.Repeat("अ", MaxTextRunes)
	_, err := Submit(SubmitParams{ID: "r3", Author: "Anu", Rating: 5, Text: text})
	require.NoError(t, err)

	_, err = Submit(SubmitParams{ID: "r4", Author: "Anu", Rating: 5, Text: text + "!"})
	assert.ErrorIs(t, err, ErrTextTooLong)
}
