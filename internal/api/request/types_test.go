package request

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSubmitScoreTypedFields(t *testing.T) {
	req, err := DecodeSubmitScore(strings.NewReader(`{"name":"Bob","score":9500,"time":50,"moves":12,"pairs":8}`))
	require.NoError(t, err)

	sub := req.ToSubmission("tok")
	assert.Equal(t, "tok", sub.Credential)
	assert.Equal(t, "Bob", sub.Name)
	require.NotNil(t, sub.Score)
	assert.Equal(t, int64(9500), *sub.Score)
	require.NotNil(t, sub.ElapsedSeconds)
	assert.Equal(t, int64(50), *sub.ElapsedSeconds)
	require.NotNil(t, sub.Moves)
	assert.Equal(t, int64(12), *sub.Moves)
	require.NotNil(t, sub.Pairs)
	assert.Equal(t, int64(8), *sub.Pairs)
}

func TestDecodeSubmitScoreWrongTypesAreAbsent(t *testing.T) {
	tests := map[string]string{
		"string numbers": `{"name":"Bob","score":"9500","time":"50"}`,
		"fractions":      `{"name":"Bob","score":95.5,"time":1.5}`,
		"exponents":      `{"name":"Bob","score":1e3,"time":2E1}`,
		"nulls":          `{"name":"Bob","score":null,"time":null}`,
		"booleans":       `{"name":"Bob","score":true,"time":false}`,
		"objects":        `{"name":"Bob","score":{},"time":[]}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			req, err := DecodeSubmitScore(strings.NewReader(body))
			require.NoError(t, err)

			sub := req.ToSubmission("")
			assert.Nil(t, sub.Score)
			assert.Nil(t, sub.ElapsedSeconds)
		})
	}
}

func TestDecodeSubmitScoreNonStringName(t *testing.T) {
	for _, body := range []string{`{"name":42}`, `{"name":null}`, `{"name":["Bob"]}`, `{}`} {
		req, err := DecodeSubmitScore(strings.NewReader(body))
		require.NoError(t, err)
		assert.Empty(t, req.ToSubmission("").Name, body)
	}
}

func TestDecodeSubmitScoreNegativeIntegersArePresent(t *testing.T) {
	req, err := DecodeSubmitScore(strings.NewReader(`{"score":-5,"time":-1}`))
	require.NoError(t, err)

	sub := req.ToSubmission("")
	require.NotNil(t, sub.Score)
	assert.Equal(t, int64(-5), *sub.Score)
}

func TestDecodeSubmitScoreEmptyBody(t *testing.T) {
	req, err := DecodeSubmitScore(strings.NewReader("  "))
	require.NoError(t, err)
	assert.Empty(t, req.ToSubmission("").Name)
}

func TestDecodeSubmitScoreRejectsNonObjects(t *testing.T) {
	for _, body := range []string{`[1,2]`, `"hello"`, `42`, `null`} {
		_, err := DecodeSubmitScore(strings.NewReader(body))
		assert.ErrorIs(t, err, ErrNotAnObject, body)
	}

	_, err := DecodeSubmitScore(strings.NewReader(`{"name":`))
	assert.Error(t, err)
}
