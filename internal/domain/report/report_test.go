package report

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWinners(t *testing.T) {
	tests := []struct {
		name   string
		scores []Score
		want   []string
	}{
		{"single", []Score{{"a", 100}, {"b", 300}, {"c", 200}}, []string{"b"}},
		{"tie", []Score{{"a", 300}, {"b", 300}, {"c", -100}}, []string{"a", "b"}},
		{"nobody positive", []Score{{"a", 0}, {"b", -200}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Winners(tt.scores))
		})
	}
}

func TestNewReport(t *testing.T) {
	start := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	end := start.Add(42 * time.Minute)
	session := uuid.New()

	r := NewReport(session, "friday", "pack", []Score{{"a", 500}}, []Review{{"a", "fun"}}, start, end)

	assert.NotEqual(t, uuid.Nil, r.ReportID)
	assert.Equal(t, session, r.SessionID)
	assert.Equal(t, []string{"a"}, r.Winners)
	assert.Equal(t, 42*time.Minute, r.Duration())
}

func TestSignVerify(t *testing.T) {
	key := []byte("secret")
	r := NewReport(uuid.New(), "s", "p", []Score{{"a", 100}, {"b", 200}}, nil, time.Now(), time.Now())

	ok, err := Verify(r, key)
	require.NoError(t, err)
	assert.False(t, ok, "unsigned report")

	sig, err := Sign(r, key)
	require.NoError(t, err)
	r.Signature = sig

	ok, err = Verify(r, key)
	require.NoError(t, err)
	assert.True(t, ok)

	r.Scores[0].Score = 900
	ok, err = Verify(r, key)
	require.NoError(t, err)
	assert.False(t, ok, "tampered scores")
}
