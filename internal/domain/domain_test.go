package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLeadStatus(t *testing.T) {
	for _, s := range []string{"NEW", "ENRICHED", "MESSAGED", "SENT", "FAILED", "INVALID", "BLOCKED", "UNSUBSCRIBED"} {
		got, err := ParseLeadStatus(s)
		require.NoError(t, err, s)
		assert.Equal(t, LeadStatus(s), got)
	}

	for _, s := range []string{"", "new", "DELETED", "SENT "} {
		_, err := ParseLeadStatus(s)
		assert.Error(t, err, "%q", s)
	}
}

func TestLeadStatusIsHardStop(t *testing.T) {
	assert.True(t, LeadInvalid.IsHardStop())
	assert.True(t, LeadBlocked.IsHardStop())
	assert.True(t, LeadUnsubscribed.IsHardStop())
	assert.False(t, LeadNew.IsHardStop())
	assert.False(t, LeadSent.IsHardStop())
	assert.False(t, LeadFailed.IsHardStop())
}

func TestParseMessageStatus(t *testing.T) {
	got, err := ParseMessageStatus("APPROVED")
	require.NoError(t, err)
	assert.Equal(t, MessageApproved, got)

	_, err = ParseMessageStatus("approved")
	assert.Error(t, err)
}

func TestMessageStatusIsTerminal(t *testing.T) {
	assert.True(t, MessageSent.IsTerminal())
	assert.True(t, MessageRejected.IsTerminal())
	assert.False(t, MessagePending.IsTerminal())
	assert.False(t, MessageApproved.IsTerminal())
	assert.False(t, MessageFailed.IsTerminal())
}

func TestParseChannel(t *testing.T) {
	got, err := ParseChannel("email")
	require.NoError(t, err)
	assert.Equal(t, ChannelEmail, got)

	got, err = ParseChannel("linkedin")
	require.NoError(t, err)
	assert.Equal(t, ChannelLinkedIn, got)

	_, err = ParseChannel("carrier-pigeon")
	assert.Error(t, err)
}
