package question

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "the beatles", Normalize("  The   BEATLES "))
	assert.Equal(t, Normalize("caf\u00e9"), Normalize("CAFE\u0301"))
}

func TestPlay_ValidationQueue(t *testing.T) {
	p := New()
	assert.True(t, p.Enqueue("Paris"))
	assert.False(t, p.Enqueue(" paris "), "same answer shares one verdict")
	assert.True(t, p.Enqueue("Lyon"))

	key, ok := p.NextPending()
	require.True(t, ok)
	assert.Equal(t, "paris", key)

	p.Judge("PARIS", true)
	key, ok = p.NextPending()
	require.True(t, ok)
	assert.Equal(t, "lyon", key)

	p.Judge("lyon", false)
	_, ok = p.NextPending()
	assert.False(t, ok)

	right, ok := p.Verdict("Paris")
	assert.True(t, ok)
	assert.True(t, right)
	_, ok = p.Verdict("Marseille")
	assert.False(t, ok)
}

func TestPlay_MediaAcks(t *testing.T) {
	p := New()
	assert.False(t, p.Ack("alice"), "no media expected")

	p.ExpectMedia(2)
	assert.True(t, p.AwaitingMedia())
	assert.False(t, p.Ack("alice"))
	assert.False(t, p.Ack("alice"), "repeated ack counts once")
	assert.True(t, p.Ack("bob"))
	assert.False(t, p.AwaitingMedia())
	assert.Equal(t, 2, p.MediaAcks())
}

func TestPlay_RemovePlayer(t *testing.T) {
	p := New()
	p.SetAnswerers(3, 0, 1)
	p.Record(1, "a", false, -100)
	p.Record(3, "b", true, 100)

	p.RemovePlayer(1)

	assert.Equal(t, []int{0, 2}, p.Answerers)
	require.Len(t, p.History, 1)
	assert.Equal(t, 2, p.History[0].Player)
	assert.True(t, p.IsAnswerer(2))
	assert.False(t, p.IsAnswerer(3))
	assert.Equal(t, []int{2}, p.RightAnswerers())
	assert.True(t, p.Multi())
}
