package transport

import "strings"

// WebSocketURL maps an http(s):// server address to its ws(s):// equivalent
// for the WS transports, leaving any other scheme untouched.
func WebSocketURL(serverAddress string) string {
	switch {
	case strings.HasPrefix(serverAddress, "https://"):
		return "wss://" + strings.TrimPrefix(serverAddress, "https://")
	case strings.HasPrefix(serverAddress, "http://"):
		return "ws://" + strings.TrimPrefix(serverAddress, "http://")
	default:
		return serverAddress
	}
}
