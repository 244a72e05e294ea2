package assistant

import "time"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is immutable once appended to a transcript.
type Message struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Language  string    `json:"language,omitempty"`
}

type Status string

const (
	StatusReplied   Status = "replied"
	StatusIgnored   Status = "ignored"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Result reports what a send did. Request is set whenever a user message was
// appended; Reply only when the assistant answered.
type Result struct {
	Status  Status   `json:"status"`
	Request *Message `json:"request,omitempty"`
	Reply   *Message `json:"reply,omitempty"`
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	Transcript []Message `json:"transcript"`
	IsThinking bool      `json:"isThinking"`
	Draft      string    `json:"draft"`
}
