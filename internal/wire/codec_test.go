package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFrame(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"basic", "CONOK,S1,50000,5000,*", []string{"CONOK", "S1", "50000", "5000", "*"}},
		{"update values", "U,1,1,ACME|12.50", []string{"U", "1", "1", "ACME|12.50"}},
		{"braces kept whole", "MSG,{foo,bar},end", []string{"MSG", "{foo,bar}", "end"}},
		{"nested braces", "MSG,{outer{inner,inner2}outer},end", []string{"MSG", "{outer{inner,inner2}outer}", "end"}},
		{"unbalanced braces", "MSG,{unbalanced,end", []string{"MSG", "{unbalanced,end"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, SplitFrame(c.in))
		})
	}
}

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame("CONOK,S1,50000,5000,*\r\n")
	require.NoError(t, err)
	assert.Equal(t, TagCONOK, f.Tag)
	assert.Equal(t, []string{"S1", "50000", "5000", "*"}, f.Args)

	_, err = ParseFrame("")
	assert.Error(t, err)
}

func TestParseCONOK(t *testing.T) {
	f, err := ParseFrame("CONOK,S8f4aec42c3c14ad0,50000,5000,*")
	require.NoError(t, err)
	data, err := ParseCONOK(f.Args)
	require.NoError(t, err)
	assert.Equal(t, "S8f4aec42c3c14ad0", data.SessionID)
	assert.Equal(t, 50000, data.RequestLimit)
	assert.Equal(t, 5000, data.KeepaliveInterval)
}

func TestBuildURL(t *testing.T) {
	u := BuildURL("http://example", EndpointCreateSession, true)
	assert.Contains(t, u, "/lightstreamer/create_session.txt?LS_protocol=")
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("field", "last_price"))
	assert.Error(t, ValidateName("field", "last price"))
	assert.Error(t, ValidateName("field", ""))
}
