package ws

import "encoding/json"

// Envelope is the shape every inbound client message decodes into first;
// Payload is dispatched further by Type.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AuthPayload is the auth{user} client message.
type AuthPayload struct {
	User string `json:"user" validate:"required"`
}

// FocusPayload is the focus{users[]} client message. subscribe and
// presence:focus are accepted aliases at the Type level; the payload shape
// is identical.
type FocusPayload struct {
	Users []string `json:"users"`
}

// BlurPayload is the blur{users[]} client message.
type BlurPayload struct {
	Users []string `json:"users"`
}

// AuthOk is the auth_ok server reply.
type AuthOk struct {
	User        string `json:"user"`
	ServerID    string `json:"server_id"`
	HeartbeatMS int64  `json:"heartbeat_ms"`
	TTLSeconds  int64  `json:"ttl_seconds"`
	LastSeenMS  *int64 `json:"last_seen_ms"`
}

// FocusOk is the focus_ok server reply, carrying a presence snapshot for
// every accepted user.
type FocusOk struct {
	Statuses []StatusDTO `json:"statuses"`
}

// StatusDTO mirrors presence.Status on the wire.
type StatusDTO struct {
	User         string `json:"user"`
	Online       bool   `json:"online"`
	LastActiveMS int64  `json:"last_active_ms"`
	Bucket       string `json:"bucket"`
}

// BlurOk is the blur_ok server reply; always empty.
type BlurOk struct{}

// PresenceUpdate is the server-pushed flip delivery.
type PresenceUpdate struct {
	User        string `json:"user"`
	Online      bool   `json:"online"`
	TimestampMS int64  `json:"timestamp_ms"`
}

// ErrorReply is the typed error reply used for every rejected message
// (bad state, invalid payload, rate limit).
type ErrorReply struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Out is the outer frame wrapping every server-to-client message, tagged by
// Type so the client's single message handler can dispatch on it.
type Out struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}
