package queue

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	to, subject, html string
	err               error
}

func (r *recordingSender) Send(to, subject, html string) error {
	r.to, r.subject, r.html = to, subject, html
	return r.err
}

func TestHandleMessageDeliversJob(t *testing.T) {
	body, err := json.Marshal(EmailMessage{
		ID:      "m1",
		To:      "alice@example.com",
		Subject: "Verify your account",
		HTML:    "<p>hi</p>",
		Kind:    KindVerification,
	})
	require.NoError(t, err)

	s := &recordingSender{}
	require.NoError(t, handleMessage(body, s))
	assert.Equal(t, "alice@example.com", s.to)
	assert.Equal(t, "Verify your account", s.subject)
	assert.Equal(t, "<p>hi</p>", s.html)
}

func TestHandleMessageRejectsBadJSON(t *testing.T) {
	s := &recordingSender{}
	assert.Error(t, handleMessage([]byte("{not json"), s))
	assert.Empty(t, s.to, "sender must not be called for a poison message")
}

func TestHandleMessageRejectsMissingRecipient(t *testing.T) {
	body, _ := json.Marshal(EmailMessage{ID: "m2", Subject: "x"})
	s := &recordingSender{}
	assert.Error(t, handleMessage(body, s))
}

func TestHandleMessagePropagatesSendFailure(t *testing.T) {
	body, _ := json.Marshal(EmailMessage{ID: "m3", To: "a@b.c", Kind: KindPasswordReset})
	s := &recordingSender{err: errors.New("relay down")}
	assert.Error(t, handleMessage(body, s))
}
