package email

// Envelope is a fully resolved message ready for delivery: sender
// normalized, template rendering already applied. This is the shape
// handed to a transport.
type Envelope struct {
	From     string
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	TextBody string
	HTMLBody string
}

// Recipients returns the total number of addresses across to/cc/bcc.
func (e *Envelope) Recipients() int {
	return len(e.To) + len(e.Cc) + len(e.Bcc)
}
