package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSource(t *testing.T) {
	assert.Equal(t, SourceEmail, ParseSource("email"))
	assert.Equal(t, SourceProject, ParseSource(" Project "))
	assert.Equal(t, SourceUnknown, ParseSource("webhook"))
	assert.Equal(t, SourceUnknown, ParseSource(""))
}

func TestDisplayTitle_FallbackOrder(t *testing.T) {
	r := Record{Subject: "Invoice overdue", Title: "Task 12"}
	assert.Equal(t, "Invoice overdue", r.DisplayTitle())

	r = Record{Title: "Task 12"}
	assert.Equal(t, "Task 12", r.DisplayTitle())

	r = Record{Subject: "   "}
	assert.Equal(t, "(no subject)", r.DisplayTitle())
}

func TestBodyText_FallbackOrder(t *testing.T) {
	r := Record{Body: "body text", Description: "desc"}
	assert.Equal(t, "body text", r.BodyText())

	r = Record{Description: "desc"}
	assert.Equal(t, "desc", r.BodyText())

	r = Record{}
	assert.Equal(t, "", r.BodyText())
}

func TestSenderID_FallbackOrder(t *testing.T) {
	r := Record{Sender: "ana@acme.com", Author: "ana"}
	assert.Equal(t, "ana@acme.com", r.SenderID())

	r = Record{Author: " ana "}
	assert.Equal(t, "ana", r.SenderID())

	r = Record{}
	assert.Equal(t, UnknownSender, r.SenderID())
}
