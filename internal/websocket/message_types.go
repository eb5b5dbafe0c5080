package websocket

// Сообщения клиента → сервер
const (
	// SCAN передаёт распознанный payload QR-кода
	SCAN = "SCAN"

	// STOP прерывает текущий забег
	STOP = "STOP"

	// START запускает забег заново
	START = "START"
)

// Сообщения сервер → клиент
const (
	// SCAN_RESULT результат обработки скана (принят или отклонён)
	SCAN_RESULT = "SCAN_RESULT"

	// RUN_COMPLETED забег завершён, итог сохранён
	RUN_COMPLETED = "RUN_COMPLETED"

	// RUN_STOPPED забег прерван без результата
	RUN_STOPPED = "RUN_STOPPED"

	// RUN_STARTED забег запущен
	RUN_STARTED = "RUN_STARTED"

	// ERROR ошибка обработки сообщения клиента
	ERROR = "ERROR"
)
