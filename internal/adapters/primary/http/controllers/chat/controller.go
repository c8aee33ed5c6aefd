package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/usecase"
	"github.com/admin/astro-agent/internal/usecases/agent"
)

const (
	invalidFormat = "Invalid message format. Please send JSON."
	tooFast       = "You're sending messages too quickly. Please wait a moment."
	turnFailed    = "I encountered an error processing your message. Please try again."

	writeTimeout = 10 * time.Second
	// endTimeout время на сводку разговора после закрытия сокета
	endTimeout   = 30 * time.Second
	maxMessageSz = 16 << 10
)

type Config struct {
	// MessagesPerMinute лимит сообщений на соединение
	MessagesPerMinute int `envconfig:"WS_MESSAGES_PER_MINUTE" default:"20"`
	Burst             int `envconfig:"WS_BURST" default:"5"`
}

// clientMessage сообщение от клиента
type clientMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type Controller struct {
	agent    usecase.IChatAgent
	tokens   usecase.ITokenValidator
	cfg      Config
	upgrader websocket.Upgrader
	Log      *slog.Logger
}

func New(chatAgent usecase.IChatAgent, tokens usecase.ITokenValidator, cfg Config, log *slog.Logger) *Controller {
	return &Controller{
		agent:  chatAgent,
		tokens: tokens,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		Log: log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	router.GET("/ws/chat", c.handleChat)
}

// handleChat токен проверяется после апгрейда: неверный токен закрывает сокет кодом 1008
func (c *Controller) handleChat(ctx *gin.Context) {
	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.Log.Warn("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()
	// таймауты http.Server рассчитаны на REST, сокет живёт дольше
	_ = conn.SetReadDeadline(time.Time{})
	conn.SetReadLimit(maxMessageSz)

	userID, err := c.tokens.Validate(ctx.Query("token"))
	if err != nil {
		c.Log.Info("websocket rejected", "error", err)
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Invalid or expired token")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
		return
	}

	c.serve(ctx.Request.Context(), conn, userID)
}

func (c *Controller) serve(ctx context.Context, conn *websocket.Conn, userID string) {
	sink := &connSink{conn: conn}
	sess := agent.NewSession(userID)
	log := c.Log.With("user_id", userID, "conversation_id", sess.ConversationID)
	log.Info("websocket connected")

	defer func() {
		endCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), endTimeout)
		defer cancel()
		c.agent.EndSession(endCtx, sess, false)
		log.Info("websocket disconnected", "turns", sess.Turns())
	}()

	if _, _, err := c.agent.Welcome(ctx, sess, sink); err != nil {
		log.Error("failed to send welcome", "error", err)
		_ = sink.Send(ctx, domain.Event{Type: domain.EventError, Content: turnFailed})
	}

	limiter := rate.NewLimiter(c.limit(), max(c.cfg.Burst, 1))
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Debug("websocket read failed", "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if sink.Send(ctx, domain.Event{Type: domain.EventError, Content: invalidFormat}) != nil {
				return
			}
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		if !limiter.Allow() {
			if sink.Send(ctx, domain.Event{Type: domain.EventError, Content: tooFast}) != nil {
				return
			}
			continue
		}

		if _, err := c.agent.HandleMessage(ctx, sess, msg.Content, sink); err != nil {
			log.Error("turn failed", "error", err)
		}
		if sink.broken() {
			return
		}
	}
}

func (c *Controller) limit() rate.Limit {
	if c.cfg.MessagesPerMinute <= 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(c.cfg.MessagesPerMinute))
}

// connSink сериализует запись событий в сокет, после первой ошибки записи молчит
type connSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
	err  error
}

var errConnBroken = errors.New("websocket connection is broken")

func (s *connSink) Send(_ context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return errConnBroken
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(event); err != nil {
		s.err = err
		return err
	}
	return nil
}

func (s *connSink) broken() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err != nil
}
