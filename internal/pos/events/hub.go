// Package events 向在线的收银端推送账本变化（Server-Sent Events）。
package events

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// 事件类型
const (
	TypeOrderCommitted = "order_committed"
	TypeStockUpdated   = "stock_updated"
	TypeStockAlert     = "stock_alert"
	TypeAlertCleared   = "alert_cleared"
)

// Event 一条推送，Data 为 JSON
type Event struct {
	Type string
	Data string
}

// Client 一个 SSE 连接
type Client struct {
	ID     string
	UserID string
	Events chan Event
}

// Hub 管理连接并广播事件，nil Hub 上的发布是空操作
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{clients: make(map[string]*Client), logger: logger}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("Event client registered",
		zap.String("client_id", client.ID), zap.String("user_id", client.UserID), zap.Int("total", n))
}

// Unregister 关闭客户端通道，重复调用无副作用
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	client, ok := h.clients[clientID]
	if ok {
		close(client.Events)
		delete(h.clients, clientID)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Debug("Event client unregistered", zap.String("client_id", clientID), zap.Int("total", n))
	}
}

func (h *Hub) ClientCount() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast 缓冲区满的客户端跳过本条事件
func (h *Hub) Broadcast(event Event) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Events <- event:
		default:
			h.logger.Warn("Event client buffer full, dropping event",
				zap.String("client_id", client.ID), zap.String("event", event.Type))
		}
	}
}

// Publish 序列化 payload 后广播
func (h *Hub) Publish(eventType string, payload interface{}) {
	if h == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Event marshal failed", zap.String("event", eventType), zap.Error(err))
		return
	}
	h.Broadcast(Event{Type: eventType, Data: string(data)})
}
