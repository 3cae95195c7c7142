package invitations

import (
	"net/url"
	"strings"

	"github.com/frankbot/frank/internal/validation"
)

// InboundMessage is the subset of the mail webhook's field map the
// pipeline reads.
type InboundMessage struct {
	From    string `form:"envelope[from]" validate:"required"`
	To      string `form:"headers[To]"`
	Subject string `form:"headers[Subject]"`
	Body    string `form:"plain"`
}

// InvalidMessageError lists the inbound fields that failed validation.
type InvalidMessageError struct {
	Fields validation.Errors
}

func (e *InvalidMessageError) Error() string {
	return "invalid inbound message: " + e.Fields.Error()
}

// MessageFromForm reads an InboundMessage out of the webhook's form values.
// It does not validate.
func MessageFromForm(values url.Values) InboundMessage {
	return InboundMessage{
		From:    strings.TrimSpace(values.Get("envelope[from]")),
		To:      values.Get("headers[To]"),
		Subject: values.Get("headers[Subject]"),
		Body:    values.Get("plain"),
	}
}

// Validate checks the sender field is present. An empty body is left to the
// When line parser, which reports it as a malformed invitation.
func (m InboundMessage) Validate() error {
	err := validation.Struct(m)
	if failures, ok := err.(validation.Errors); ok {
		return &InvalidMessageError{Fields: failures}
	}
	return err
}
