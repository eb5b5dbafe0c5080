package websocket

// MetricsProvider определяет метод для получения метрик хаба.
type MetricsProvider interface {
	GetMetrics() map[string]interface{}
	ClientCount() int
}

// HubInterface объединяет возможности хаба, нужные Manager.
type HubInterface interface {
	MetricsProvider

	// SendToSession отправляет байтовое сообщение всем соединениям сессии забега.
	// Возвращает количество клиентов, получивших сообщение.
	SendToSession(sessionID string, message []byte) int
}
