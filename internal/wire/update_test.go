package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconstructFields_FirstUpdate(t *testing.T) {
	next, changed, err := ReconstructFields(nil, []string{"ACME", "12.50"})
	require.NoError(t, err)
	assert.Equal(t, "ACME", next[1].Value)
	assert.Equal(t, "12.50", next[2].Value)
	assert.True(t, changed[1])
	assert.True(t, changed[2])
}

func TestReconstructFields_UnchangedAndRepeat(t *testing.T) {
	prev, _, err := ReconstructFields(nil, []string{"X", "Y", "Z"})
	require.NoError(t, err)

	// spec scenario 6: second update "|^1|W" => {1:"X", 2:"Y", 3:"W"}, changed {3}
	next, changed, err := ReconstructFields(prev, []string{"", "^1", "W"})
	require.NoError(t, err)
	assert.Equal(t, "X", next[1].Value)
	assert.Equal(t, "Y", next[2].Value)
	assert.Equal(t, "W", next[3].Value)
	assert.False(t, changed[1])
	assert.False(t, changed[2])
	assert.True(t, changed[3])
}

func TestReconstructFields_NullAndEmpty(t *testing.T) {
	prev, _, err := ReconstructFields(nil, []string{"a", "b"})
	require.NoError(t, err)

	next, changed, err := ReconstructFields(prev, []string{"#", "$"})
	require.NoError(t, err)
	assert.True(t, next[1].Null)
	assert.False(t, next[2].Null)
	assert.Equal(t, "", next[2].Value)
	assert.True(t, changed[1])
	assert.True(t, changed[2])
}

func TestReconstructFields_Unescape(t *testing.T) {
	next, _, err := ReconstructFields(nil, []string{`a\|b`, `c\\d`})
	require.NoError(t, err)
	assert.Equal(t, "a|b", next[1].Value)
	assert.Equal(t, `c\d`, next[2].Value)
}

func TestReconstructFields_JSONPatchDelta(t *testing.T) {
	prev, _, err := ReconstructFields(nil, []string{`{"a":1,"b":2}`})
	require.NoError(t, err)

	patch := `^P[{"op":"replace","path":"/a","value":9}]`
	next, changed, err := ReconstructFields(prev, []string{patch})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":9,"b":2}`, next[1].Value)
	assert.True(t, changed[1])
}

func TestCOMMANDAddAddDelete(t *testing.T) {
	// spec scenario 2: key@1, command@2, data@3
	add1, _, err := ReconstructFields(nil, []string{"k1", "ADD", "v1"})
	require.NoError(t, err)
	assert.Equal(t, "ADD", add1[2].Value)
	assert.Equal(t, "v1", add1[3].Value)

	add2, _, err := ReconstructFields(nil, []string{"k2", "ADD", "v2"})
	require.NoError(t, err)
	assert.Equal(t, "v2", add2[3].Value)

	del, _, err := ReconstructFields(add1, []string{"k1", "DELETE", ""})
	require.NoError(t, err)
	assert.Equal(t, "DELETE", del[2].Value)
}
