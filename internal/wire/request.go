package wire

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Endpoint identifies a TLCP request target path segment.
type Endpoint string

const (
	EndpointCreateSession Endpoint = "create_session"
	EndpointBindSession   Endpoint = "bind_session"
	EndpointControl       Endpoint = "control"
	EndpointMessage       Endpoint = "msg"
)

// Protocol is the TLCP version this client speaks.
const Protocol = "TLCP-2.0.0"

// BuildURL constructs the request URL for an endpoint relative to a
// server address already validated to start with http(s)://.
func BuildURL(serverAddress string, endpoint Endpoint, withProtocol bool) string {
	base := strings.TrimSuffix(serverAddress, "/") + "/lightstreamer/" + string(endpoint) + ".txt"
	if withProtocol {
		return base + "?LS_protocol=" + url.QueryEscape(Protocol)
	}
	return base
}

// ValidateName rejects field/item names containing whitespace or commas,
// which would corrupt the form-urlencoded request or the frame tokenizer.
func ValidateName(field, name string) error {
	if name == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	if strings.ContainsAny(name, " \t\r\n,") {
		return fmt.Errorf("%s %q must not contain whitespace or commas", field, name)
	}
	return nil
}

// CreateSessionRequest holds the parameters for a create_session call.
type CreateSessionRequest struct {
	CID            string
	AdapterSet     string
	User           string
	Password       string
	KeepaliveMs    int
	ContentLength  int
	RequestedPoll  bool
}

func (r CreateSessionRequest) Encode() url.Values {
	v := url.Values{}
	v.Set("LS_cid", r.CID)
	if r.AdapterSet != "" {
		v.Set("LS_adapter_set", r.AdapterSet)
	}
	if r.User != "" {
		v.Set("LS_user", r.User)
	}
	if r.Password != "" {
		v.Set("LS_password", r.Password)
	}
	if r.KeepaliveMs > 0 {
		v.Set("LS_keepalive_millis", strconv.Itoa(r.KeepaliveMs))
	}
	if r.ContentLength > 0 {
		v.Set("LS_content_length", strconv.Itoa(r.ContentLength))
	}
	if r.RequestedPoll {
		v.Set("LS_polling", "true")
	}
	return v
}

// BindSessionRequest holds the parameters for a bind_session call, used both
// for ordinary transport rebinds and for recovery (when Recovery is set).
type BindSessionRequest struct {
	SessionID string
	Recovery  bool
	Prog      int64
}

func (r BindSessionRequest) Encode() url.Values {
	v := url.Values{}
	v.Set("LS_session", r.SessionID)
	if r.Recovery {
		v.Set("LS_recovery_from", strconv.FormatInt(r.Prog, 10))
	}
	return v
}

// ControlOp is a control request's LS_op value.
type ControlOp string

const (
	OpAdd         ControlOp = "add"
	OpDelete      ControlOp = "delete"
	OpChange      ControlOp = "change"
	OpForceRebind ControlOp = "force_rebind"
	OpDestroy     ControlOp = "destroy"
)

// SubscribeRequest holds the parameters for a control op=add request.
type SubscribeRequest struct {
	SessionID      string
	ReqID          int
	SubID          int
	Mode           string
	Group          string // LS_group (items) or item_group
	Schema         string // LS_schema (fields) or field_schema
	DataAdapter    string
	MaxFrequency   string
	BufferSize     string
	Snapshot       string
	Selector       string
}

func (r SubscribeRequest) Encode() (url.Values, error) {
	if strings.ContainsAny(r.Group, "\t\r\n") || strings.ContainsAny(r.Schema, "\t\r\n") {
		return nil, fmt.Errorf("wire: LS_group/LS_schema must not contain control characters")
	}
	v := url.Values{}
	v.Set("LS_op", string(OpAdd))
	v.Set("LS_session", r.SessionID)
	v.Set("LS_reqId", strconv.Itoa(r.ReqID))
	v.Set("LS_subId", strconv.Itoa(r.SubID))
	v.Set("LS_mode", r.Mode)
	v.Set("LS_group", r.Group)
	v.Set("LS_schema", r.Schema)
	if r.DataAdapter != "" {
		v.Set("LS_data_adapter", r.DataAdapter)
	}
	if r.MaxFrequency != "" {
		v.Set("LS_requested_max_frequency", r.MaxFrequency)
	}
	if r.BufferSize != "" {
		v.Set("LS_requested_buffer_size", r.BufferSize)
	}
	if r.Snapshot != "" {
		v.Set("LS_snapshot", r.Snapshot)
	}
	if r.Selector != "" {
		v.Set("LS_selector", r.Selector)
	}
	return v, nil
}

// UnsubscribeRequest holds the parameters for a control op=delete request.
type UnsubscribeRequest struct {
	SessionID string
	ReqID     int
	SubID     int
}

func (r UnsubscribeRequest) Encode() url.Values {
	v := url.Values{}
	v.Set("LS_op", string(OpDelete))
	v.Set("LS_session", r.SessionID)
	v.Set("LS_reqId", strconv.Itoa(r.ReqID))
	v.Set("LS_subId", strconv.Itoa(r.SubID))
	return v
}

// MessageRequest holds the parameters for a msg.txt send.
type MessageRequest struct {
	SessionID  string
	ReqID      int
	Sequence   string
	MessageNum int
	Text       string
	MaxWaitMs  int
}

func (r MessageRequest) Encode() url.Values {
	v := url.Values{}
	v.Set("LS_session", r.SessionID)
	v.Set("LS_reqId", strconv.Itoa(r.ReqID))
	v.Set("LS_sequence", r.Sequence)
	v.Set("LS_msg_prog", strconv.Itoa(r.MessageNum))
	v.Set("LS_message", r.Text)
	if r.MaxWaitMs > 0 {
		v.Set("LS_max_wait", strconv.Itoa(r.MaxWaitMs))
	}
	return v
}

// ReverseHeartbeatRequest is the empty control request sent when no other
// client->server request has gone out recently.
type ReverseHeartbeatRequest struct {
	SessionID string
	ReqID     int
}

func (r ReverseHeartbeatRequest) Encode() url.Values {
	v := url.Values{}
	v.Set("LS_session", r.SessionID)
	v.Set("LS_reqId", strconv.Itoa(r.ReqID))
	return v
}
