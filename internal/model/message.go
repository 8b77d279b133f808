package model

// Header default values used when a message omits the header entirely.
const (
	DefaultSubject   = "No Subject"
	DefaultSender    = "Unknown Sender"
	DefaultRecipient = "Unknown Recipient"
)

// Message is the flat, persisted form of a single ingested email.
// ID is the primary key; re-ingesting the same ID overwrites every other field.
type Message struct {
	ID        string `json:"id" db:"id"`
	ThreadID  string `json:"thread_id" db:"thread_id"`
	Sender    string `json:"sender" db:"sender"`
	Recipient string `json:"recipient" db:"recipient"`
	Subject   string `json:"subject" db:"subject"`

	// Timestamp is seconds since the Unix epoch.
	Timestamp int64  `json:"timestamp" db:"timestamp"`
	Body      string `json:"body" db:"body"`
}

// Attachment is shallow metadata about a file attached to a Message.
// Its lifecycle is bound to the parent message via MessageID.
type Attachment struct {
	ID        int64  `json:"id" db:"id"`
	MessageID string `json:"message_id" db:"message_id"`
	Filename  string `json:"filename" db:"filename"`
	MIMEType  string `json:"mime_type" db:"mime_type"`
	Size      int64  `json:"size" db:"size"`
}

// Header is a single name/value pair as delivered by the mail transport.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered header list.
type Headers []Header

// Get returns the value of the first header whose name matches exactly.
// Matching is case-sensitive.
func (h Headers) Get(name string) (string, bool) {
	for _, hdr := range h {
		if hdr.Name == name {
			return hdr.Value, true
		}
	}
	return "", false
}
