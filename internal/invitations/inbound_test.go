package invitations

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageFromForm(t *testing.T) {
	msg := MessageFromForm(url.Values{
		"envelope[from]":   {"  err8n@eservices.virginia.edu "},
		"headers[To]":      {"daf2c@virginia.edu"},
		"headers[Subject]": {"Sync"},
		"plain":            {"When: ..."},
		"attachments":      {"0"},
	})

	require.Equal(t, InboundMessage{
		From:    "err8n@eservices.virginia.edu",
		To:      "daf2c@virginia.edu",
		Subject: "Sync",
		Body:    "When: ...",
	}, msg)
	require.NoError(t, msg.Validate())
}

func TestInboundMessage_Validate(t *testing.T) {
	tests := []struct {
		name   string
		msg    InboundMessage
		fields []string
	}{
		{name: "missing sender", msg: InboundMessage{Body: "x"}, fields: []string{"envelope[from]"}},
		{name: "blank message", msg: InboundMessage{}, fields: []string{"envelope[from]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			var invalid *InvalidMessageError
			require.True(t, errors.As(err, &invalid))

			var got []string
			for _, f := range invalid.Fields {
				got = append(got, f.Field)
			}
			require.Equal(t, tt.fields, got)
			require.Contains(t, err.Error(), tt.fields[0])
		})
	}
}

func TestInboundMessage_ValidateLeavesBodyAndSubjectAlone(t *testing.T) {
	require.NoError(t, InboundMessage{From: "a@b"}.Validate())
	require.NoError(t, InboundMessage{From: "a@b", Body: "x", Subject: strings.Repeat("s", 1000)}.Validate())
}
