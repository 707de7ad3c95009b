package tlcpclient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDetails() (*ConnectionDetails, *[]string) {
	var fired []string
	d := newConnectionDetails(func(p string) { fired = append(fired, p) })
	return d, &fired
}

func TestConnectionDetails_DefaultsToDefaultAdapterSet(t *testing.T) {
	d, _ := newTestDetails()
	require.Equal(t, DefaultAdapterSet, d.AdapterSet())
}

func TestConnectionDetails_SetServerAddressValidatesScheme(t *testing.T) {
	d, _ := newTestDetails()
	require.Error(t, d.SetServerAddress("ftp://example.com"))
	require.NoError(t, d.SetServerAddress("https://example.com/"))
	require.Equal(t, "https://example.com", d.ServerAddress())
}

func TestConnectionDetails_SetAdapterSetCoercesEmptyToDefault(t *testing.T) {
	d, _ := newTestDetails()
	require.NoError(t, d.SetAdapterSet("custom"))
	require.Equal(t, "custom", d.AdapterSet())
	require.NoError(t, d.SetAdapterSet(""))
	require.Equal(t, DefaultAdapterSet, d.AdapterSet())
}

func TestConnectionDetails_SetAdapterSetRejectsComma(t *testing.T) {
	d, _ := newTestDetails()
	require.Error(t, d.SetAdapterSet("a,b"))
}

func TestConnectionDetails_PasswordIsWriteOnly(t *testing.T) {
	d, _ := newTestDetails()
	d.SetPassword("secret")
	require.Equal(t, "secret", d.password_())
}

func TestConnectionDetails_ApplyServerAssignedOnlyFiresChangedFields(t *testing.T) {
	d, fired := newTestDetails()
	d.applyServerAssigned("sid-1", "1.2.3.4", "", "")
	require.Equal(t, "sid-1", d.SessionID())
	require.Equal(t, "1.2.3.4", d.ClientIP())
	require.Contains(t, *fired, "sessionId")
	require.Contains(t, *fired, "clientIp")

	*fired = nil
	d.applyServerAssigned("sid-1", "1.2.3.4", "", "")
	require.Empty(t, *fired, "unchanged fields must not re-fire")
}

func TestConnectionDetails_ClearSessionAssignedResetsSessionID(t *testing.T) {
	d, _ := newTestDetails()
	d.applyServerAssigned("sid-1", "1.2.3.4", "", "")
	d.clearSessionAssigned()
	require.Empty(t, d.SessionID())
}
