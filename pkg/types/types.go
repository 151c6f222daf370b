package types

// Socket envelope type accepted by the ask socket server
const RequestTypeAsk = "ask_request"

// Resolution statuses delivered back over the socket connection
const (
	StatusAnswered  = "answered"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// AskOption is one selectable option of a question, addressed by position
type AskOption struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// AskQuestion is a single question within a request batch
// ID is unique within the batch; options are ordered and addressed by index
type AskQuestion struct {
	ID       string      `json:"id"`
	Header   string      `json:"header"`
	Question string      `json:"question"`
	Options  []AskOption `json:"options"`
}

// AskNote configures the optional batch-level free-text note
type AskNote struct {
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// AskRequestBatch is the question batch carried by one socket request
type AskRequestBatch struct {
	Questions []AskQuestion `json:"questions"`
	Note      *AskNote      `json:"note"`
}

// SocketRequest is the newline-delimited JSON envelope read from a socket
// connection. RequestedAtISO is echoed verbatim in session listings.
type SocketRequest struct {
	Type           string          `json:"type"`
	AskID          string          `json:"ask_id"`
	Request        AskRequestBatch `json:"request"`
	TimeoutMS      uint64          `json:"timeout_ms"`
	RequestedAtISO string          `json:"requested_at_iso"`
}

// AskAnswer is one answer keyed by question id. SelectedIndex addresses the
// question's options; UsedOther routes the answer through OtherText instead.
type AskAnswer struct {
	ID            string  `json:"id"`
	SelectedLabel string  `json:"selected_label"`
	SelectedIndex *int    `json:"selected_index"`
	UsedOther     bool    `json:"used_other"`
	OtherText     *string `json:"other_text"`
}

// ResponseBatch is the terminal outcome of a session, produced exactly once
// and written back over the originating socket connection as one JSON line
type ResponseBatch struct {
	AskID         string      `json:"ask_id"`
	Answers       []AskAnswer `json:"answers"`
	Note          *string     `json:"note"`
	Status        string      `json:"status"`
	AnsweredAtISO *string     `json:"answered_at_iso"`
	Source        string      `json:"source"`
}

// SubmitPayload is the submission entry point's inbound payload.
// Status must be "answered" or "cancelled"; expiry is never submitted.
type SubmitPayload struct {
	AskID   string      `json:"ask_id"`
	Answers []AskAnswer `json:"answers"`
	Note    *string     `json:"note"`
	Status  string      `json:"status"`
}

// PendingSessionView is the read-only session snapshot returned to the UI
type PendingSessionView struct {
	AskID          string          `json:"askId"`
	Request        AskRequestBatch `json:"request"`
	RequestedAtISO string          `json:"requestedAtIso"`
	TimeoutMS      uint64          `json:"timeoutMs"`
	ExpiresAtISO   *string         `json:"expiresAtIso"`
	IsExpired      bool            `json:"isExpired"`
}

// SessionCreatedEvent is the creation notice pushed to the UI event sink
// once per newly registered session
type SessionCreatedEvent struct {
	AskID             string  `json:"askId"`
	RequestedAtISO    string  `json:"requestedAtIso"`
	FirstQuestionText *string `json:"firstQuestionText"`
}

// ResolutionRecord is one row of the terminal-outcome log. Pending sessions
// are never persisted; only resolutions are.
type ResolutionRecord struct {
	ID             string      `json:"id"`
	AskID          string      `json:"ask_id"`
	Status         string      `json:"status"`
	Answers        []AskAnswer `json:"answers"`
	Note           *string     `json:"note"`
	RequestedAtISO string      `json:"requested_at_iso"`
	ResolvedAtISO  string      `json:"resolved_at_iso"`
	Source         string      `json:"source"`
}
