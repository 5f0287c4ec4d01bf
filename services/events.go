package services

// Event types broadcast to connected clients. The names are the wire-level
// message types every client switches on.
const (
	EventQuestionActivated = "questionActivated"
	EventQuestionClosed    = "questionClosed"
	EventVoteUpdate        = "voteUpdate"
	EventResultView        = "resultView"
	EventVideoCacheStatus  = "resultVideoCacheStatus"
	EventShowEmoji         = "showEmoji"
	EventActiveQuestion    = "activeQuestion"
)

// Event is a state-change notification derived from a core operation. The
// core only emits events; delivery is the hub's concern.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Publisher forwards domain events to connected clients.
type Publisher interface {
	Publish(event Event)
}
