package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/barbershop/internal/apperr"
	"github.com/example/barbershop/internal/services"
)

const chatStreamTimeout = 2 * time.Minute

// ChatHandler proxies the shop assistant.
type ChatHandler struct {
	chat *services.ChatService
	log  *zap.Logger
}

// NewChatHandler constructs ChatHandler.
func NewChatHandler(chat *services.ChatService, log *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, log: log.Named("chat_http")}
}

type chatRequest struct {
	Messages []services.ChatMessage `json:"messages"`
}

// Chat returns the assistant's full reply.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return errInvalidBody
	}

	reply, err := h.chat.Reply(c.UserContext(), req.Messages)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"message": reply})
}

// Stream relays the reply as server-sent events, one "data:" event per chunk
// followed by "data: [DONE]".
func (h *ChatHandler) Stream(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return errInvalidBody
	}
	if err := h.chat.Validate(req.Messages); err != nil {
		return err
	}

	lang := c.Get(fiber.HeaderAcceptLanguage)
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	messages := req.Messages
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithTimeout(context.Background(), chatStreamTimeout)
		defer cancel()

		err := h.chat.StreamReply(ctx, messages, func(chunk string) error {
			if err := writeEvent(w, chunk); err != nil {
				cancel()
				return err
			}
			return nil
		})
		if err != nil {
			h.log.Warn("chat stream ended with error", zap.Error(err))
			e := apperr.From(err)
			payload, _ := json.Marshal(fiber.Map{"code": e.Code, "message": e.Localized(lang)})
			_, _ = fmt.Fprintf(w, "event: error\ndata: %s\n\n", payload)
			_ = w.Flush()
			return
		}

		_ = writeEvent(w, "[DONE]")
	})
	return nil
}

// writeEvent writes one SSE event. Multi-line chunks become several data
// lines of the same event.
func writeEvent(w *bufio.Writer, data string) error {
	for _, line := range strings.Split(data, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	if _, err := w.WriteString("\n"); err != nil {
		return err
	}
	return w.Flush()
}
