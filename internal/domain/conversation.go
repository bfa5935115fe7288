package domain

// Message is one entry of a session log. Never mutated after creation.
type Message struct {
	ID     MessageID
	Text   string
	Sender Sender
	SentAt Timestamp
}

// Partner is an entry of the static partner catalog.
type Partner struct {
	ID          PartnerID
	DisplayName string
	Avatar      string
	IsAutomated bool

	// Greeting overrides the default greeting text when set
	Greeting string
}

// Snapshot is an immutable copy of a session's observable state.
type Snapshot struct {
	SessionID     SessionID
	Partner       Partner
	Log           []Message
	AwaitingReply bool

	// Revision grows by one on every observable change
	Revision uint64
}

// Last returns the most recent message of the log.
func (s Snapshot) Last() Message {
	if len(s.Log) == 0 {
		return Message{}
	}
	return s.Log[len(s.Log)-1]
}
