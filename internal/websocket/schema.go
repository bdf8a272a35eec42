package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventProgress Event = "progress"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

// ProgressFrame wraps a raw progress payload published by the session
// engine so dashboard clients can dispatch on the event field.
type ProgressFrame struct {
	Event   Event  `json:"event"`
	ExamID  string `json:"exam_id"`
	Payload any    `json:"payload"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
