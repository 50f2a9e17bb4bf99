package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"meshline-backend/pkg/constants"
)

func TestConversation_IsDirect(t *testing.T) {
	direct := &Conversation{Type: constants.ConversationTypeDirect}
	group := &Conversation{Type: constants.ConversationTypeGroup}

	assert.True(t, direct.IsDirect())
	assert.False(t, group.IsDirect())
}
