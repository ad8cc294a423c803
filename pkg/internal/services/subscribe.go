package services

import (
	"sync"

	"github.com/chorushq/chorus/pkg/internal/models"
)

// Destination -> UserID -> Client ID
var subscribeInfo = make(map[models.Destination]map[uint]string)
var subscribeLock sync.Mutex

// If user subscribed to a destination
// Push the new message to them via websocket
// And skip the notification

func CheckSubscribed(userId uint, dest models.Destination) bool {
	subscribeLock.Lock()
	defer subscribeLock.Unlock()
	if _, ok := subscribeInfo[dest]; ok {
		if _, ok := subscribeInfo[dest][userId]; ok {
			return true
		}
	}
	return false
}

func SubscribeDestination(userId uint, dest models.Destination, clientId string) {
	subscribeLock.Lock()
	defer subscribeLock.Unlock()
	if _, ok := subscribeInfo[dest]; !ok {
		subscribeInfo[dest] = make(map[uint]string)
	}
	subscribeInfo[dest][userId] = clientId
}

func UnsubscribeDestination(userId uint, dest models.Destination) {
	subscribeLock.Lock()
	defer subscribeLock.Unlock()
	if _, ok := subscribeInfo[dest]; ok {
		delete(subscribeInfo[dest], userId)
	}
}

func UnsubscribeAll(userId uint) {
	subscribeLock.Lock()
	defer subscribeLock.Unlock()
	for _, v := range subscribeInfo {
		delete(v, userId)
	}
}

func UnsubscribeAllWithDestination(dest models.Destination) {
	subscribeLock.Lock()
	defer subscribeLock.Unlock()
	delete(subscribeInfo, dest)
}

func UnsubscribeAllWithClient(clientId string) {
	subscribeLock.Lock()
	defer subscribeLock.Unlock()
	for _, v := range subscribeInfo {
		for k, item := range v {
			if item == clientId {
				delete(v, k)
			}
		}
	}
}

func ListSubscriberID(dest models.Destination) []uint {
	subscribeLock.Lock()
	defer subscribeLock.Unlock()
	var idx []uint
	for id := range subscribeInfo[dest] {
		idx = append(idx, id)
	}
	return idx
}
