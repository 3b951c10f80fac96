package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-signing-secret")

func TestIssueVerifyRoundTrip(t *testing.T) {
	c := NewCodec(testSecret)
	subject := uuid.New()

	for _, kind := range []Kind{Access, Refresh} {
		raw, err := c.Issue(subject, kind, time.Minute)
		require.NoError(t, err)
		require.NotEmpty(t, raw)

		got, err := c.Verify(raw, kind)
		require.NoError(t, err)
		assert.Equal(t, subject, got)
	}
}

func TestVerifyExpired(t *testing.T) {
	// exp claims carry second precision; a whole-second clock keeps the
	// 900ms probe strictly inside the window
	now := time.Now().UTC().Truncate(time.Second)
	c := NewCodec(testSecret).WithClock(func() time.Time { return now })

	raw, err := c.Issue(uuid.New(), Access, time.Second)
	require.NoError(t, err)

	// still valid just before the deadline
	c2 := c.WithClock(func() time.Time { return now.Add(900 * time.Millisecond) })
	_, err = c2.Verify(raw, Access)
	require.NoError(t, err)

	c3 := c.WithClock(func() time.Time { return now.Add(2 * time.Second) })
	_, err = c3.Verify(raw, Access)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyWrongType(t *testing.T) {
	c := NewCodec(testSecret)

	refresh, err := c.Issue(uuid.New(), Refresh, time.Minute)
	require.NoError(t, err)

	_, err = c.Verify(refresh, Access)
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestVerifyBadSignature(t *testing.T) {
	c := NewCodec(testSecret)
	other := NewCodec([]byte("some-other-secret"))

	raw, err := other.Issue(uuid.New(), Access, time.Minute)
	require.NoError(t, err)

	_, err = c.Verify(raw, Access)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyMalformed(t *testing.T) {
	c := NewCodec(testSecret)

	for _, raw := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
		_, err := c.Verify(raw, Access)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", raw)
	}
}

func TestVerifyNilSubject(t *testing.T) {
	// the zero UUID is a parseable subject and round-trips as-is
	c := NewCodec(testSecret)
	raw, err := c.Issue(uuid.Nil, Access, time.Minute)
	require.NoError(t, err)

	got, err := c.Verify(raw, Access)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, got)
}

func TestHashStableAndOneWay(t *testing.T) {
	h1 := Hash("raw-token-value")
	h2 := Hash("raw-token-value")
	h3 := Hash("other-token-value")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.NotContains(t, h1, "raw-token-value")
}
