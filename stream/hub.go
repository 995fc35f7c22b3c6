// 快照推送：通过websocket把每个模拟步的世界状态推送给订阅者
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Pattern websocket端点
	Pattern = "/ws/snapshots"

	subscriberBuffer = 8
	writeWait        = time.Second
)

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub 快照推送中心
// 功能：每步的快照只编码一次，放入各订阅者的发送队列
// 说明：队列满时丢弃该帧，写失败时断开订阅者
type Hub struct {
	upgrader websocket.Upgrader

	mtx         sync.Mutex
	subscribers map[*subscriber]struct{}
	dropped     int64
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Len 当前订阅者数
func (h *Hub) Len() int {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return len(h.subscribers)
}

// Dropped 因队列满被丢弃的帧数
func (h *Hub) Dropped() int64 {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.dropped
}

// Publish 将v编码为JSON并推送给所有订阅者，不阻塞
func (h *Hub) Publish(v any) error {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if len(h.subscribers) == 0 {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	for s := range h.subscribers {
		select {
		case s.send <- data:
		default:
			h.dropped++
		}
	}
	return nil
}

// ServeHTTP 升级为websocket连接并注册订阅者
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("upgrade failed: %v", err)
		return
	}
	s := &subscriber{conn: conn, send: make(chan []byte, subscriberBuffer)}
	h.mtx.Lock()
	h.subscribers[s] = struct{}{}
	h.mtx.Unlock()
	log.Infof("snapshot subscriber %s connected", r.RemoteAddr)

	go h.readLoop(s)
	h.writeLoop(s)
}

// writeLoop 发送队列中的帧，队列关闭或写失败时返回
func (h *Hub) writeLoop(s *subscriber) {
	defer h.unsubscribe(s)
	for data := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debugf("write to subscriber failed: %v", err)
			return
		}
	}
}

// readLoop 丢弃客户端消息，连接断开时关闭发送队列
func (h *Hub) readLoop(s *subscriber) {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			h.unsubscribe(s)
			return
		}
	}
}

func (h *Hub) unsubscribe(s *subscriber) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if _, ok := h.subscribers[s]; !ok {
		return
	}
	delete(h.subscribers, s)
	close(s.send)
	s.conn.Close()
}

// Close 断开所有订阅者
func (h *Hub) Close() {
	h.mtx.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		subs = append(subs, s)
	}
	h.mtx.Unlock()
	for _, s := range subs {
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		h.unsubscribe(s)
	}
}
