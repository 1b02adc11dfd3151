// Package reply renders routing outcomes into provider-compatible replies.
package reply

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/wolfman30/sms-router/internal/identity"
	"github.com/wolfman30/sms-router/pkg/logging"
)

// Kind tells the transport which envelope a reply belongs to.
type Kind string

const (
	KindReply       Kind = "reply"
	KindError       Kind = "error"
	KindSpamBlocked Kind = "spam_blocked"
)

// Fixed reply texts. None of them interpolate caller-supplied content.
const (
	DefaultAcknowledgement = "Got it! I'll get back to you shortly."
	GenericErrorMessage    = "Sorry, something went wrong processing your message. Please try again in a moment."
	SpamBlockedMessage     = "This message was flagged as spam and was not processed."
)

// Response is the wire reply for one inbound message.
type Response struct {
	To   string `json:"to,omitempty"`
	Body string `json:"body"`
	Kind Kind   `json:"kind"`
}

// IsError reports whether the reply is the error or spam variant.
func (r Response) IsError() bool {
	return r.Kind != KindReply
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// TwiML renders the reply as a provider markup document.
func (r Response) TwiML() string {
	var buf bytes.Buffer
	buf.WriteString(xml.Header[:len(xml.Header)-1])
	out, _ := xml.Marshal(twimlResponse{Message: r.Body})
	buf.Write(out)
	return buf.String()
}

// Formatter builds Responses. It never returns an error.
type Formatter struct {
	logger *logging.Logger
}

// NewFormatter creates a Formatter.
func NewFormatter(logger *logging.Logger) *Formatter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Formatter{logger: logger}
}

// Format wraps replyText verbatim. Empty text becomes the default
// acknowledgement.
func (f *Formatter) Format(replyText string, user *identity.UserIdentity) Response {
	body := replyText
	if strings.TrimSpace(body) == "" {
		body = DefaultAcknowledgement
	}
	resp := Response{Body: body, Kind: KindReply}
	if user != nil {
		resp.To = user.MatchedPhone
	}
	return resp
}

// FormatError returns the fixed apology. reason is logged, never sent.
func (f *Formatter) FormatError(phone, reason string) Response {
	f.logger.Debug("formatting error reply", "phone", logging.MaskPhone(phone), "reason", reason)
	return Response{To: phone, Body: GenericErrorMessage, Kind: KindError}
}

// FormatSpamBlocked returns the fixed block notice.
func (f *Formatter) FormatSpamBlocked(phone string) Response {
	return Response{To: phone, Body: SpamBlockedMessage, Kind: KindSpamBlocked}
}

// FormatNotice wraps one of the router's own fixed texts (command output,
// throttling notice) as a normal reply.
func (f *Formatter) FormatNotice(phone, text string, kind Kind) Response {
	if kind == "" {
		kind = KindReply
	}
	return Response{To: phone, Body: text, Kind: kind}
}
