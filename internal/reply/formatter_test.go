package reply

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/sms-router/internal/identity"
	"github.com/wolfman30/sms-router/pkg/logging"
)

func TestFormatEmbedsReplyVerbatim(t *testing.T) {
	f := NewFormatter(logging.Discard())
	user := &identity.UserIdentity{UserID: 1, MatchedPhone: "+15551234567"}

	for _, text := range []string{"Hello!", "  spaced  ", "<b>& \"quotes\"</b>", "ünïcödé ✓"} {
		resp := f.Format(text, user)
		assert.Equal(t, text, resp.Body)
		assert.Equal(t, KindReply, resp.Kind)
		assert.False(t, resp.IsError())
		assert.Equal(t, "+15551234567", resp.To)
	}
}

func TestFormatEmptyUsesAcknowledgement(t *testing.T) {
	f := NewFormatter(nil)
	assert.Equal(t, DefaultAcknowledgement, f.Format("", nil).Body)
	assert.Equal(t, DefaultAcknowledgement, f.Format(" \n ", nil).Body)
	assert.Empty(t, f.Format("x", nil).To)
}

func TestFormatKeepsLongRepliesVerbatim(t *testing.T) {
	f := NewFormatter(logging.Discard())
	long := strings.Repeat("é", 2000)
	resp := f.Format(long, nil)
	assert.Equal(t, long, resp.Body)
	assert.Equal(t, KindReply, resp.Kind)
}

func TestErrorAndSpamNeverEchoInput(t *testing.T) {
	f := NewFormatter(logging.Discard())
	hostile := "<script>FREE MONEY</script>"

	errResp := f.FormatError("+15551234567", hostile)
	assert.Equal(t, GenericErrorMessage, errResp.Body)
	assert.Equal(t, KindError, errResp.Kind)
	assert.True(t, errResp.IsError())
	assert.NotContains(t, errResp.TwiML(), "script")

	spam := f.FormatSpamBlocked("+15551234567")
	assert.Equal(t, SpamBlockedMessage, spam.Body)
	assert.Equal(t, KindSpamBlocked, spam.Kind)
	assert.True(t, spam.IsError())
}

func TestTwiMLEscapesBody(t *testing.T) {
	resp := Response{Body: `Tom & Jerry <3 "hi"`, Kind: KindReply}
	assert.Equal(t,
		`<?xml version="1.0" encoding="UTF-8"?><Response><Message>Tom &amp; Jerry &lt;3 &#34;hi&#34;</Message></Response>`,
		resp.TwiML(),
	)
}

func TestFormatNoticeDefaultsKind(t *testing.T) {
	f := NewFormatter(logging.Discard())
	resp := f.FormatNotice("+1555", "Commands: help", "")
	assert.Equal(t, KindReply, resp.Kind)
	assert.Equal(t, "Commands: help", resp.Body)
}
