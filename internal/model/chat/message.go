package chat

// Message is a single turn inside a session transcript. Immutable once appended.
type Message struct {
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// Sender tags carried by Message.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)
