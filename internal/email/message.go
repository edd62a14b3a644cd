// Package email defines the core message data model used throughout the server.
package email

import "fmt"

// Recipient is a single email recipient with an optional display name.
type Recipient struct {
	Address string `json:"email"`
	Name    string `json:"name,omitempty"`
}

// String renders the recipient in RFC 5322 address form,
// "Name <addr>" when a display name is present.
func (r Recipient) String() string {
	if r.Name == "" {
		return r.Address
	}
	return fmt.Sprintf("%s <%s>", r.Name, r.Address)
}

// Message represents a single email send request before content resolution.
// Subject and Body are required unless TemplateID is set, in which case the
// rendered template values take precedence.
type Message struct {
	From         string            `json:"from,omitempty"`
	To           []Recipient       `json:"to"`
	Cc           []Recipient       `json:"cc,omitempty"`
	Bcc          []Recipient       `json:"bcc,omitempty"`
	Subject      string            `json:"subject"`
	Body         string            `json:"body"`
	HTMLBody     string            `json:"htmlBody,omitempty"`
	TemplateID   string            `json:"templateId,omitempty"`
	TemplateData map[string]string `json:"templateData,omitempty"`
	RelayID      string            `json:"relayId,omitempty"`
}

// Addresses flattens a recipient list to bare addresses.
func Addresses(rs []Recipient) []string {
	if len(rs) == 0 {
		return nil
	}
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Address)
	}
	return out
}
