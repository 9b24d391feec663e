package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing    Action = "ping"
	ActionBackNav Action = "back_nav"
	ActionUnload  Action = "unload"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState    Event = "state"
	EventDecision Event = "decision"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

// StateResponse carries a full session snapshot. Pushed once per second
// so the client timer follows the server clock instead of counting down
// on its own.
type StateResponse struct {
	Event Event       `json:"event"`
	State interface{} `json:"state"`
}

// DecisionResponse answers an integrity action with the guard's verdict.
type DecisionResponse struct {
	Event    Event  `json:"event"`
	Decision string `json:"decision"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
