package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

var singletonMutex sync.Mutex

// BidFeedHub fans bid events out to every connection watching a game. Topics
// are game ids.
type BidFeedHub struct {
	registrationMutex sync.Mutex
	listeners         map[string][]*websocket.Conn
}

func (hub *BidFeedHub) RegisterListener(topic string, conn *websocket.Conn) {
	hub.registrationMutex.Lock()
	defer hub.registrationMutex.Unlock()

	if hub.listeners[topic] == nil {
		hub.listeners[topic] = []*websocket.Conn{conn}
		return
	}
	hub.listeners[topic] = append(hub.listeners[topic], conn)
}

func (hub *BidFeedHub) UnregisterListener(topic string, conn *websocket.Conn) {
	hub.registrationMutex.Lock()
	defer hub.registrationMutex.Unlock()

	connAddrToClose := conn.RemoteAddr()

	if len(hub.listeners[topic]) == 1 {
		delete(hub.listeners, topic)
		return
	}

	var indexToDelete int
	for i, listener := range hub.listeners[topic] {
		connAddr := listener.RemoteAddr()
		if connAddr == connAddrToClose {
			indexToDelete = i
			break
		}
	}

	hub.listeners[topic] = append(hub.listeners[topic][:indexToDelete], hub.listeners[topic][indexToDelete+1:]...)
}

func (hub *BidFeedHub) Publish(targetTopic string, event any) {
	hub.registrationMutex.Lock()
	defer hub.registrationMutex.Unlock()

	for _, listener := range hub.listeners[targetTopic] {
		_ = listener.WriteJSON(event)
	}
}

var bidFeedHubSingleton *BidFeedHub

func NewBidFeedHub() *BidFeedHub {
	singletonMutex.Lock()
	defer singletonMutex.Unlock()

	if bidFeedHubSingleton == nil {
		bidFeedHubSingleton = &BidFeedHub{
			listeners: make(map[string][]*websocket.Conn),
		}
	}

	return bidFeedHubSingleton
}
