package websocket

import (
	"sync"
	"time"
)

// HubMetrics агрегированные метрики соединений потока сканов
type HubMetrics struct {
	totalConnections  int64
	activeConnections int64
	messagesSent      int64
	messagesReceived  int64
	messagesDropped   int64 // буфер клиента переполнен
	startTime         time.Time

	messageTypeCounts map[string]int64

	mu sync.RWMutex
}

// NewHubMetrics создает новый экземпляр метрик Hub
func NewHubMetrics() *HubMetrics {
	return &HubMetrics{
		startTime:         time.Now(),
		messageTypeCounts: make(map[string]int64),
	}
}

// ConnectionOpened учитывает новое подключение
func (m *HubMetrics) ConnectionOpened() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalConnections++
	m.activeConnections++
}

// ConnectionClosed учитывает закрытое подключение
func (m *HubMetrics) ConnectionClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeConnections > 0 {
		m.activeConnections--
	}
}

// MessageSent учитывает отправленное сообщение типа messageType
func (m *HubMetrics) MessageSent(messageType string, count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesSent += count
	m.messageTypeCounts[messageType] += count
}

// MessageReceived учитывает сообщение от клиента
func (m *HubMetrics) MessageReceived() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesReceived++
}

// MessageDropped учитывает сообщение, не поместившееся в буфер клиента
func (m *HubMetrics) MessageDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesDropped++
}

// Snapshot возвращает копию метрик для /health
func (m *HubMetrics) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	types := make(map[string]int64, len(m.messageTypeCounts))
	for k, v := range m.messageTypeCounts {
		types[k] = v
	}
	return map[string]interface{}{
		"total_connections":  m.totalConnections,
		"active_connections": m.activeConnections,
		"messages_sent":      m.messagesSent,
		"messages_received":  m.messagesReceived,
		"messages_dropped":   m.messagesDropped,
		"message_types":      types,
		"uptime_seconds":     int64(time.Since(m.startTime).Seconds()),
	}
}
