package notify

import (
	"sync"

	"github.com/gorilla/websocket"
)

// WebsocketClient adapts a gorilla websocket connection to the Client
// interface. Writes are serialized; gorilla connections allow at most one
// concurrent writer.
type WebsocketClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWebsocketClient(conn *websocket.Conn) *WebsocketClient {
	return &WebsocketClient{conn: conn}
}

func (c *WebsocketClient) Send(e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(e)
}

func (c *WebsocketClient) Close() error {
	return c.conn.Close()
}
