package services

import (
	"sync"
	"time"

	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/samber/lo"
)

// TypingIndicatorTTL is how long a typing heartbeat stays visible without
// a refresh. There is no background sweeper, stale entries fall out the
// next time someone reads the board.
const TypingIndicatorTTL = 3000 * time.Millisecond

var (
	typingLock  sync.Mutex
	typingBoard = make(map[models.Destination]map[uint]time.Time)
)

func SetTypingStatus(dest models.Destination, user models.Account) {
	typingLock.Lock()
	board, ok := typingBoard[dest]
	if !ok {
		board = make(map[uint]time.Time)
		typingBoard[dest] = board
	}
	board[user.ID] = time.Now()
	typingLock.Unlock()

	NotifyDestination(dest, "status", "typing", map[string]any{
		"state":      "start",
		"account_id": user.ID,
		"account":    user,
	})
}

// ClearTypingStatus removes the user's marker right away, without waiting
// for it to expire. Sending a message does this implicitly.
func ClearTypingStatus(dest models.Destination, accountId uint) {
	typingLock.Lock()
	board := typingBoard[dest]
	_, existed := board[accountId]
	if existed {
		delete(board, accountId)
		if len(board) == 0 {
			delete(typingBoard, dest)
		}
	}
	typingLock.Unlock()

	if existed {
		NotifyDestination(dest, "status", "typing", map[string]any{
			"state":      "stop",
			"account_id": accountId,
		})
	}
}

// ListTypingAccountIDs reads the board for one destination, pruning
// whatever expired along the way.
func ListTypingAccountIDs(dest models.Destination, now time.Time) []uint {
	typingLock.Lock()
	defer typingLock.Unlock()

	board := typingBoard[dest]
	var idx []uint
	for id, stamp := range board {
		if now.Sub(stamp) > TypingIndicatorTTL {
			delete(board, id)
			continue
		}
		idx = append(idx, id)
	}
	if len(board) == 0 {
		delete(typingBoard, dest)
	}

	return idx
}

// ListTypingAccount resolves the fresh markers into profiles, leaving the
// viewer themselves out.
func ListTypingAccount(user models.Account, dest models.Destination) ([]models.Account, error) {
	idx := lo.Filter(ListTypingAccountIDs(dest, time.Now()), func(id uint, index int) bool {
		return id != user.ID
	})
	if len(idx) == 0 {
		return []models.Account{}, nil
	}

	profiles, err := ListAccount(idx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Account, 0, len(idx))
	for _, id := range idx {
		if profile, ok := profiles[id]; ok {
			out = append(out, profile)
		}
	}

	return out, nil
}
