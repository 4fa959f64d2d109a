package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/convopipe/convopipe/core/config"
	"github.com/convopipe/convopipe/internal/chat"
)

const webhookSendTimeout = 3 * time.Second

type webhookRequest struct {
	Message string `json:"message" binding:"required"`
}

type webhookResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// WebhookSource runs an HTTP server that accepts inbound messages as
// POST / with a {"message": "..."} body and exposes GET /health.
// The server starts on the first Receive and shuts down when the
// context given to Receive is cancelled.
type WebhookSource struct {
	addr     string
	payloads chan string
	once     sync.Once
	srv      *http.Server
}

func NewWebhookSource(cfg config.WebhookConfig) *WebhookSource {
	s := &WebhookSource{
		addr:     cfg.ListenAddr,
		payloads: make(chan string, 100),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.POST("/", s.handleInbound)
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

func (s *WebhookSource) Name() string { return "webhook" }

// Handler exposes the HTTP handler, mainly for tests.
func (s *WebhookSource) Handler() http.Handler { return s.srv.Handler }

func (s *WebhookSource) Receive(ctx context.Context) (string, error) {
	s.once.Do(func() { s.start(ctx) })

	select {
	case payload := <-s.payloads:
		return payload, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *WebhookSource) start(ctx context.Context) {
	go func() {
		slog.InfoContext(ctx, "webhook server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "webhook server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()
}

func (s *WebhookSource) handleInbound(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, webhookResponse{Status: "error", Message: "invalid payload"})
		return
	}

	select {
	case s.payloads <- req.Message:
		c.JSON(http.StatusOK, webhookResponse{Status: "success", Message: "Message received"})
	default:
		c.JSON(http.StatusServiceUnavailable, webhookResponse{Status: "error", Message: "input queue full"})
	}
}

// WebhookSink POSTs assistant messages to a configured URL as
// {role, content, timestamp} JSON. With no URL configured every
// delivery is a logged no-op, matching a receiver that is simply not
// set up yet.
type WebhookSink struct {
	url    string
	client *http.Client
}

func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: webhookSendTimeout},
	}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Deliver(ctx context.Context, msg chat.Message) error {
	if msg.Role != chat.RoleAssistant {
		return nil
	}
	if s.url == "" {
		slog.DebugContext(ctx, "no webhook URL configured, skipping send")
		return nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook receiver responded with HTTP %d", resp.StatusCode)
	}
	return nil
}
