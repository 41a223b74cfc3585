package template

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFnUUID(t *testing.T) {
	a, err := fnUUID("")
	require.NoError(t, err)
	b, err := fnUUID("")
	require.NoError(t, err)

	assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`, a)
	assert.NotEqual(t, a, b)

	_, err = fnUUID("extra")
	assert.Error(t, err)
}

func TestFnTimestamps(t *testing.T) {
	before := time.Now()

	sec, err := fnTimestamp("")
	require.NoError(t, err)
	ms, err := fnTimestampMs("")
	require.NoError(t, err)

	s, err := strconv.ParseInt(sec, 10, 64)
	require.NoError(t, err)
	m, err := strconv.ParseInt(ms, 10, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, s, before.Unix())
	assert.GreaterOrEqual(t, m, before.UnixMilli())

	_, err = fnTimestampMs("x")
	assert.Error(t, err)
}

func TestFnRandom(t *testing.T) {
	for i := 0; i < 100; i++ {
		out, err := fnRandom("1, 10")
		require.NoError(t, err)
		n, err := strconv.Atoi(out)
		require.NoError(t, err)
		assert.True(t, n >= 1 && n <= 10, "out of range: %d", n)
	}

	out, err := fnRandom("7,7")
	require.NoError(t, err)
	assert.Equal(t, "7", out)
}

func TestFnRandom_InvalidArgs(t *testing.T) {
	for _, args := range []string{"", "1", "a,2", "1,b", "5,1", "1,2,3"} {
		_, err := fnRandom(args)
		assert.Error(t, err, "args %q", args)
	}
}

func TestFnRandomString(t *testing.T) {
	out, err := fnRandomString("16")
	require.NoError(t, err)
	assert.Regexp(t, `^[a-zA-Z0-9]{16}$`, out)

	for _, args := range []string{"", "0", "-1", "1001", "x"} {
		_, err := fnRandomString(args)
		assert.Error(t, err, "args %q", args)
	}
}

func TestFnDate(t *testing.T) {
	out, err := fnDate("2006-01-02")
	require.NoError(t, err)
	_, err = time.Parse("2006-01-02", out)
	assert.NoError(t, err)

	out, err = fnDate("")
	require.NoError(t, err)
	_, err = time.Parse(time.RFC3339, out)
	assert.NoError(t, err)
}

func TestEvalFunction(t *testing.T) {
	_, ok, err := evalFunction("tenant")
	assert.False(t, ok)
	assert.NoError(t, err)

	_, ok, _ = evalFunction("unknown()")
	assert.False(t, ok)

	_, ok, err = evalFunction("random_string(0)")
	assert.True(t, ok)
	assert.ErrorContains(t, err, "function random_string")
}
