package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/checkrun-api/internal/service"
	"github.com/yourusername/checkrun-api/internal/websocket"
	"github.com/yourusername/checkrun-api/pkg/auth"
)

// WSHandler обрабатывает WebSocket соединения сессий забега
type WSHandler struct {
	wsHub          *websocket.Hub
	wsManager      *websocket.Manager
	sessionService *service.RunSessionService
	jwtService     *auth.JWTService
	clientConfig   websocket.ClientConfig
	upgrader       gorillaws.Upgrader
}

// NewWSHandler создает новый обработчик WebSocket.
// allowedOrigins синхронизирован с CORS; пустой Origin (не браузер) разрешён.
func NewWSHandler(
	wsHub *websocket.Hub,
	wsManager *websocket.Manager,
	sessionService *service.RunSessionService,
	jwtService *auth.JWTService,
	clientConfig websocket.ClientConfig,
	allowedOrigins []string,
) *WSHandler {
	handler := &WSHandler{
		wsHub:          wsHub,
		wsManager:      wsManager,
		sessionService: sessionService,
		jwtService:     jwtService,
		clientConfig:   clientConfig,
		upgrader:       newUpgrader(allowedOrigins),
	}

	// Регистрируем обработчики сообщений один раз при создании обработчика
	handler.registerMessageHandlers()

	return handler
}

func newUpgrader(allowedOrigins []string) gorillaws.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return gorillaws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed["*"]; ok {
				return true
			}
			if _, ok := allowed[origin]; ok {
				return true
			}
			log.Printf("WebSocket: rejected unauthorized origin: %s", origin)
			return false
		},
	}
}

// HandleConnection подключает клиента к сессии забега по тикету
// GET /ws/sessions/:id?ticket=...
func (h *WSHandler) HandleConnection(c *gin.Context) {
	sessionID := c.GetString("sessionID")
	ticket := c.Query("ticket")
	// НЕ логируем тикет - это секретные данные аутентификации
	if ticket == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authentication ticket parameter"})
		return
	}

	claims, err := h.jwtService.ParseToken(ticket, auth.UsageWSTicket)
	if err != nil {
		log.Printf("WebSocket: Invalid or expired ticket - %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired ticket"})
		return
	}
	if claims.SessionID != sessionID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Ticket was issued for another session"})
		return
	}

	if _, err := h.sessionService.GetSession(sessionID); err != nil {
		handleError(c, "WSHandler", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту
		log.Printf("WebSocket: Error upgrading connection: %v", err)
		return
	}

	client := websocket.NewClient(h.wsHub, conn, sessionID, h.clientConfig)
	log.Printf("WebSocket: Connection %s attached to session %s", client.ConnectionID, sessionID)

	// Запускаем прослушивание сообщений
	client.StartPumps(h.wsManager.HandleMessage)
}

// registerMessageHandlers регистрирует обработчики для различных типов сообщений.
// Ошибки сервиса уходят клиенту как ERROR, соединение остаётся открытым.
func (h *WSHandler) registerMessageHandlers() {
	h.wsManager.RegisterHandler(websocket.SCAN, func(data json.RawMessage, client *websocket.Client) error {
		var scan struct {
			Payload  string `json:"payload"`
			Debounce *bool  `json:"debounce,omitempty"`
		}
		if err := json.Unmarshal(data, &scan); err != nil || scan.Payload == "" {
			h.wsManager.SendErrorToClient(client, "invalid_format", "SCAN requires a non-empty payload")
			return nil
		}
		debounce := scan.Debounce == nil || *scan.Debounce

		// SCAN_RESULT и RUN_COMPLETED рассылаются сервисом через notifier,
		// подавленный повтор не порождает сообщений
		if _, err := h.sessionService.SubmitScan(context.Background(), client.SessionID, scan.Payload, debounce); err != nil {
			h.sendServiceError(client, err)
		}
		return nil
	})

	h.wsManager.RegisterHandler(websocket.STOP, func(_ json.RawMessage, client *websocket.Client) error {
		if _, err := h.sessionService.StopSession(client.SessionID); err != nil {
			h.sendServiceError(client, err)
		}
		return nil
	})

	h.wsManager.RegisterHandler(websocket.START, func(_ json.RawMessage, client *websocket.Client) error {
		if _, err := h.sessionService.RestartSession(context.Background(), client.SessionID); err != nil {
			h.sendServiceError(client, err)
		}
		return nil
	})
}

func (h *WSHandler) sendServiceError(client *websocket.Client, err error) {
	log.Printf("[WSHandler] Сессия %s: %v", client.SessionID, err)
	h.wsManager.SendErrorToClient(client, errorCode(err), err.Error())
}
