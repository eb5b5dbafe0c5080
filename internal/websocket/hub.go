package websocket

import (
	"log"
	"sync"
)

// Hub держит соединения, сгруппированные по сессиям забега.
// Одну сессию могут смотреть несколько клиентов (бегун и наблюдатели).
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Client]struct{}
	metrics  *HubMetrics
}

// NewHub создает пустой хаб
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[*Client]struct{}),
		metrics:  NewHubMetrics(),
	}
}

// Register добавляет клиента в группу его сессии
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.sessions[c.SessionID]
	if !ok {
		group = make(map[*Client]struct{})
		h.sessions[c.SessionID] = group
	}
	group[c] = struct{}{}
	h.metrics.ConnectionOpened()
	log.Printf("[Hub] Клиент %s подключён к сессии %s (соединений: %d)", c.ConnectionID, c.SessionID, len(group))
}

// Unregister удаляет клиента и закрывает его канал отправки. Повторный вызов безопасен.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.sessions[c.SessionID]
	if !ok {
		return
	}
	if _, ok := group[c]; !ok {
		return
	}
	delete(group, c)
	if len(group) == 0 {
		delete(h.sessions, c.SessionID)
	}
	c.CloseSend()
	h.metrics.ConnectionClosed()
	log.Printf("[Hub] Клиент %s отключён от сессии %s", c.ConnectionID, c.SessionID)
}

// SendToSession отправляет сообщение всем клиентам сессии без блокировки.
// Клиенты с переполненным буфером пропускают сообщение.
func (h *Hub) SendToSession(sessionID string, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.sessions[sessionID] {
		if c.trySend(message) {
			sent++
		} else {
			h.metrics.MessageDropped()
			log.Printf("[Hub] Буфер клиента %s сессии %s переполнен, сообщение пропущено", c.ConnectionID, sessionID)
		}
	}
	if sent > 0 {
		h.metrics.MessageSent(messageTypeFromBytes(message), int64(sent))
	}
	return sent
}

// SessionClientCount количество соединений сессии
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// ClientCount общее количество соединений
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, group := range h.sessions {
		n += len(group)
	}
	return n
}

// GetMetrics возвращает метрики хаба
func (h *Hub) GetMetrics() map[string]interface{} {
	m := h.metrics.Snapshot()
	h.mu.RLock()
	m["sessions"] = len(h.sessions)
	h.mu.RUnlock()
	return m
}
