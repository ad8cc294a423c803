package services

import (
	"testing"
	"time"

	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestTypingIndicatorExpiry(t *testing.T) {
	dest := models.ChannelDestination(9001)
	now := time.Now()

	typingLock.Lock()
	typingBoard[dest] = map[uint]time.Time{
		1: now,
		2: now.Add(-TypingIndicatorTTL - time.Second),
	}
	typingLock.Unlock()

	idx := ListTypingAccountIDs(dest, now)
	assert.Equal(t, []uint{1}, idx)

	// Expired markers are removed, not merely filtered.
	typingLock.Lock()
	_, stale := typingBoard[dest][2]
	typingLock.Unlock()
	assert.False(t, stale)
}

func TestTypingSetAndClear(t *testing.T) {
	dest := models.ConversationDestination(77)
	user := models.Account{BaseModel: models.BaseModel{ID: 42}, Name: "joan"}

	SetTypingStatus(dest, user)
	assert.Contains(t, ListTypingAccountIDs(dest, time.Now()), uint(42))

	ClearTypingStatus(dest, user.ID)
	assert.Empty(t, ListTypingAccountIDs(dest, time.Now()))

	// A second clear on an empty board stays silent.
	ClearTypingStatus(dest, user.ID)
}

func TestTypingBoardDropsEmptyDestinations(t *testing.T) {
	dest := models.ChannelDestination(9002)
	user := models.Account{BaseModel: models.BaseModel{ID: 7}, Name: "omar"}

	SetTypingStatus(dest, user)
	ClearTypingStatus(dest, user.ID)

	typingLock.Lock()
	_, ok := typingBoard[dest]
	typingLock.Unlock()
	assert.False(t, ok)
}
