package tlcpclient

import (
	"strings"
	"sync"

	"github.com/streamspace-dev/tlcp-client/internal/lserrors"
)

// DefaultAdapterSet is substituted whenever AdapterSet is unset or blank.
// The protocol never sends an empty adapter set name; this package always
// coerces the sentinel at construction and on every SetAdapterSet call
// rather than carrying "unset" as a distinct state through the object's
// lifetime.
const DefaultAdapterSet = "DEFAULT"

// ConnectionDetails groups the parameters that identify the server and
// session to connect to (spec §3). The server-assigned fields (ClientIP,
// ServerInstanceAddress, ServerSocketName, SessionID) are read-only from the
// caller's perspective; only the session engine may set them, via
// applyServerAssigned. The engine currently sets only SessionID, from each
// CONOK; ClientIP, ServerInstanceAddress and ServerSocketName are never
// filled in and stay empty.
type ConnectionDetails struct {
	mu sync.RWMutex

	serverAddress string
	adapterSet    string
	user          string
	password      string

	clientIP              string
	serverInstanceAddress string
	serverSocketName      string
	sessionID             string

	notify func(property string)
}

func newConnectionDetails(notify func(string)) *ConnectionDetails {
	return &ConnectionDetails{
		adapterSet: DefaultAdapterSet,
		notify:     notify,
	}
}

// ServerAddress returns the currently configured server address.
func (d *ConnectionDetails) ServerAddress() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.serverAddress
}

// SetServerAddress validates and sets the server address. It must be
// non-empty and start with "http://" or "https://" (spec §3); the scheme is
// later remapped to ws/wss for the WebSocket transports.
func (d *ConnectionDetails) SetServerAddress(address string) error {
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		return lserrors.NewIllegalArgument("serverAddress", "must start with http:// or https://, got %q", address)
	}
	d.mu.Lock()
	d.serverAddress = strings.TrimRight(address, "/")
	d.mu.Unlock()
	d.fire("serverAddress")
	return nil
}

// AdapterSet returns the configured adapter set name. It is never empty:
// an unset or blank value is coerced to DefaultAdapterSet.
func (d *ConnectionDetails) AdapterSet() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.adapterSet
}

// SetAdapterSet sets the adapter set name, coercing "" to DefaultAdapterSet.
func (d *ConnectionDetails) SetAdapterSet(name string) error {
	if name != "" {
		if err := validateNoComma("adapterSet", name); err != nil {
			return err
		}
	} else {
		name = DefaultAdapterSet
	}
	d.mu.Lock()
	d.adapterSet = name
	d.mu.Unlock()
	d.fire("adapterSet")
	return nil
}

// User returns the configured username, if any.
func (d *ConnectionDetails) User() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.user
}

// SetUser sets the username sent with the next create_session request.
func (d *ConnectionDetails) SetUser(user string) {
	d.mu.Lock()
	d.user = user
	d.mu.Unlock()
	d.fire("user")
}

// SetPassword sets the password sent with the next create_session request.
// There is no getter: the value is write-only, matching the teacher's
// treatment of credential fields.
func (d *ConnectionDetails) SetPassword(password string) {
	d.mu.Lock()
	d.password = password
	d.mu.Unlock()
	d.fire("password")
}

func (d *ConnectionDetails) password_() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.password
}

// ClientIP reports the client IP as seen by the server. The session engine
// does not handle CLIENTIP frames, so this is always empty.
func (d *ConnectionDetails) ClientIP() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.clientIP
}

// ServerInstanceAddress reports the server cluster node address, when the
// server operates in a clustered configuration.
func (d *ConnectionDetails) ServerInstanceAddress() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.serverInstanceAddress
}

// ServerSocketName reports the server's self-reported instance name.
func (d *ConnectionDetails) ServerSocketName() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.serverSocketName
}

// SessionID reports the current session identifier, empty when disconnected.
func (d *ConnectionDetails) SessionID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sessionID
}

// applyServerAssigned is called only by the Client's session callbacks to
// record server-populated fields; it is not part of the public API surface
// a caller is expected to invoke.
func (d *ConnectionDetails) applyServerAssigned(sessionID, clientIP, serverInstanceAddress, serverSocketName string) {
	d.mu.Lock()
	changed := map[string]bool{}
	if sessionID != "" && sessionID != d.sessionID {
		d.sessionID = sessionID
		changed["sessionId"] = true
	}
	if clientIP != "" && clientIP != d.clientIP {
		d.clientIP = clientIP
		changed["clientIp"] = true
	}
	if serverInstanceAddress != d.serverInstanceAddress {
		d.serverInstanceAddress = serverInstanceAddress
		changed["serverInstanceAddress"] = true
	}
	if serverSocketName != d.serverSocketName {
		d.serverSocketName = serverSocketName
		changed["serverSocketName"] = true
	}
	d.mu.Unlock()
	for prop := range changed {
		d.fire(prop)
	}
}

func (d *ConnectionDetails) clearSessionAssigned() {
	d.mu.Lock()
	d.sessionID = ""
	d.mu.Unlock()
	d.fire("sessionId")
}

func (d *ConnectionDetails) fire(property string) {
	if d.notify != nil {
		d.notify(property)
	}
}

func validateNoComma(field, value string) error {
	if strings.ContainsAny(value, ", \t\r\n") {
		return lserrors.NewIllegalArgument(field, "must not contain whitespace or commas, got %q", value)
	}
	return nil
}
