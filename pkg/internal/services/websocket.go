package services

import (
	"sync"

	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/gofiber/contrib/websocket"
)

var (
	wsLock sync.Mutex
	// UserID -> Connections
	wsConn = make(map[uint][]*websocket.Conn)
)

func ClientRegister(user models.Account, conn *websocket.Conn) {
	wsLock.Lock()
	defer wsLock.Unlock()
	if wsConn[user.ID] == nil {
		wsConn[user.ID] = make([]*websocket.Conn, 0)
	}
	wsConn[user.ID] = append(wsConn[user.ID], conn)
}

func ClientUnregister(user models.Account, conn *websocket.Conn) {
	wsLock.Lock()
	defer wsLock.Unlock()
	if wsConn[user.ID] == nil {
		wsConn[user.ID] = make([]*websocket.Conn, 0)
	}
	for idx, item := range wsConn[user.ID] {
		if item == conn {
			wsConn[user.ID] = append(wsConn[user.ID][:idx], wsConn[user.ID][idx+1:]...)
			break
		}
	}
}

func CheckOnline(user models.Account) bool {
	wsLock.Lock()
	defer wsLock.Unlock()
	return len(wsConn[user.ID]) > 0
}

func PushCommand(userId uint, task models.UnifiedCommand) {
	wsLock.Lock()
	conns := append([]*websocket.Conn(nil), wsConn[userId]...)
	wsLock.Unlock()

	for _, conn := range conns {
		_ = conn.WriteMessage(websocket.TextMessage, task.Marshal())
	}
}

func PushCommandBatch(userId []uint, task models.UnifiedCommand) {
	for _, id := range userId {
		PushCommand(id, task)
	}
}
