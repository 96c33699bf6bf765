package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/example/barbershop/internal/apperr"
)

const (
	maxChatMessages    = 40
	maxChatContentSize = 8000
)

var (
	ErrChatEmpty = apperr.Validation("chat_empty",
		"at least one message is required", "minimal satu pesan diperlukan")
	ErrChatInvalidRole = apperr.Validation("chat_invalid_role",
		"message role must be user or assistant", "role pesan harus user atau assistant")
	ErrChatLastNotUser = apperr.Validation("chat_last_not_user",
		"the last message must come from the user", "pesan terakhir harus dari pengguna")
	ErrChatTooLong = apperr.Validation("chat_too_long",
		"conversation is too long", "percakapan terlalu panjang")
	ErrChatNotConfigured = apperr.New(apperr.KindUpstream, "chat_not_configured",
		"the assistant is not available", "asisten belum tersedia")
)

// ChatMessage is one turn of the conversation as sent by the client.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatModel is a conversational model backend.
type ChatModel interface {
	Complete(ctx context.Context, system string, history []ChatMessage) (string, error)
	Stream(ctx context.Context, system string, history []ChatMessage, onChunk func(string) error) error
}

// ChatService validates conversations and forwards them to the model with
// the shop's system prompt.
type ChatService struct {
	model        ChatModel
	systemPrompt string
	log          *zap.Logger
}

// NewChatService creates a new ChatService. model may be nil when no API key is configured.
func NewChatService(model ChatModel, systemPrompt string, log *zap.Logger) *ChatService {
	return &ChatService{model: model, systemPrompt: systemPrompt, log: log.Named("chat")}
}

// Reply returns the assistant's full answer.
func (s *ChatService) Reply(ctx context.Context, messages []ChatMessage) (string, error) {
	history, err := s.prepare(messages)
	if err != nil {
		return "", err
	}

	reply, err := s.model.Complete(ctx, s.systemPrompt, history)
	if err != nil {
		s.log.Warn("chat completion failed", zap.Error(err))
		return "", apperr.Upstream("chat_upstream", err)
	}
	return reply, nil
}

// StreamReply calls onChunk for every piece of the answer as it arrives.
func (s *ChatService) StreamReply(ctx context.Context, messages []ChatMessage, onChunk func(string) error) error {
	history, err := s.prepare(messages)
	if err != nil {
		return err
	}

	if err := s.model.Stream(ctx, s.systemPrompt, history, onChunk); err != nil {
		s.log.Warn("chat stream failed", zap.Error(err))
		return apperr.Upstream("chat_upstream", err)
	}
	return nil
}

// Validate checks a conversation without calling the model.
func (s *ChatService) Validate(messages []ChatMessage) error {
	_, err := s.prepare(messages)
	return err
}

func (s *ChatService) prepare(messages []ChatMessage) ([]ChatMessage, error) {
	if s.model == nil {
		return nil, ErrChatNotConfigured
	}

	var history []ChatMessage
	size := 0
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != "user" && role != "assistant" {
			return nil, ErrChatInvalidRole
		}
		size += len(content)
		history = append(history, ChatMessage{Role: role, Content: content})
	}

	if len(history) == 0 {
		return nil, ErrChatEmpty
	}
	if len(history) > maxChatMessages || size > maxChatContentSize {
		return nil, ErrChatTooLong
	}
	if history[len(history)-1].Role != "user" {
		return nil, ErrChatLastNotUser
	}
	return history, nil
}

// GeminiModel talks to Google Gemini.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates a Gemini client for the given model name.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiModel{client: client, model: model}, nil
}

// Close releases the underlying client.
func (g *GeminiModel) Close() error {
	return g.client.Close()
}

// Complete implements ChatModel.
func (g *GeminiModel) Complete(ctx context.Context, system string, history []ChatMessage) (string, error) {
	session, last := g.session(system, history)
	resp, err := session.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", err
	}
	text := responseText(resp)
	if text == "" {
		return "", errors.New("model returned an empty answer")
	}
	return text, nil
}

// Stream implements ChatModel.
func (g *GeminiModel) Stream(ctx context.Context, system string, history []ChatMessage, onChunk func(string) error) error {
	session, last := g.session(system, history)
	iter := session.SendMessageStream(ctx, genai.Text(last))
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if text := responseText(resp); text != "" {
			if err := onChunk(text); err != nil {
				return err
			}
		}
	}
}

func (g *GeminiModel) session(system string, history []ChatMessage) (*genai.ChatSession, string) {
	model := g.client.GenerativeModel(g.model)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	session := model.StartChat()
	for _, m := range history[:len(history)-1] {
		session.History = append(session.History, &genai.Content{
			Role:  geminiRole(m.Role),
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return session, history[len(history)-1].Content
}

func geminiRole(role string) string {
	if role == "assistant" {
		return "model"
	}
	return "user"
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		break
	}
	return sb.String()
}
