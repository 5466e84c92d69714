package domain

type Role string

const (
	UserRole      Role = "user"
	AssistantRole Role = "assistant"
)

// ChatRequest is the body accepted by the prompt submission endpoint.
type ChatRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

// ErrorResponse is returned for every failure that happens before a stream starts.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// TranscriptEntry is one rendered line of a client-side conversation.
type TranscriptEntry struct {
	ID      string     `json:"id"`
	Role    Role       `json:"role"`
	Text    string     `json:"text"`
	Sources []Citation `json:"sources,omitempty"`
}
