package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/barbershop/internal/models"
	"github.com/example/barbershop/internal/pricing"
)

const defaultTelegramAPI = "https://api.telegram.org"

// AdminNotifier tells shop staff about events that need attention.
type AdminNotifier interface {
	NotifyNewOrder(ctx context.Context, order OrderNotification) error
	NotifyPaymentProof(ctx context.Context, order OrderNotification) error
	NotifyPaymentDecision(ctx context.Context, decision PaymentDecisionNotification) error
	NotifyNewAppointment(ctx context.Context, appt AppointmentNotification) error
}

// OrderNotification contains order data for an admin message.
type OrderNotification struct {
	OrderNumber   string
	CustomerName  string
	CustomerPhone string
	Items         []OrderItemNotification
	Total         decimal.Decimal
	PaymentMethod models.PaymentMethod
	ProofURL      string
}

// OrderItemNotification contains order item data.
type OrderItemNotification struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// PaymentDecisionNotification reports an approve/reject outcome.
type PaymentDecisionNotification struct {
	OrderNumber string
	Decision    Decision
	Notes       string
	Total       decimal.Decimal
}

// AppointmentNotification describes a new booking.
type AppointmentNotification struct {
	CustomerName string
	ServiceName  string
	BarberName   string
	StartTime    time.Time
}

// TelegramService sends admin notifications to a Telegram chat.
type TelegramService struct {
	botToken    string
	adminChatID string
	baseURL     string
	location    *time.Location
	client      *http.Client
	log         *zap.Logger
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string, log *zap.Logger) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		baseURL:     defaultTelegramAPI,
		location:    time.UTC,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log.Named("telegram"),
	}
}

// WithBaseURL points the service at another Bot API host.
func (s *TelegramService) WithBaseURL(baseURL string) *TelegramService {
	s.baseURL = strings.TrimRight(baseURL, "/")
	return s
}

// WithLocation sets the zone booking times are shown in.
func (s *TelegramService) WithLocation(loc *time.Location) *TelegramService {
	if loc != nil {
		s.location = loc
	}
	return s
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends an HTML message to the specified chat.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		s.log.Debug("bot token not configured, message dropped")
		return nil
	}

	body, err := json.Marshal(telegramMessage{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.adminChatID == "" {
		s.log.Debug("admin chat ID not configured, message dropped")
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// NotifyNewOrder announces a freshly placed order.
func (s *TelegramService) NotifyNewOrder(ctx context.Context, order OrderNotification) error {
	var itemsList strings.Builder
	for i, item := range order.Items {
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		fmt.Fprintf(&itemsList, "%d. <b>%s</b>\n   %d x %s = %s\n",
			i+1,
			html.EscapeString(item.Name),
			item.Quantity,
			pricing.FormatPrice(item.UnitPrice),
			pricing.FormatPrice(lineTotal),
		)
	}

	message := fmt.Sprintf(`<b>🛒 PESANAN BARU</b>
<b>📋 Pesanan:</b> %s
<b>👤 Pelanggan:</b> %s
<b>📞 Telepon:</b> %s
<b>📦 Produk:</b>
%s
<b>💰 Total:</b> %s
<b>💳 Pembayaran:</b> %s`,
		html.EscapeString(order.OrderNumber),
		html.EscapeString(orDash(order.CustomerName)),
		html.EscapeString(orDash(order.CustomerPhone)),
		itemsList.String(),
		pricing.FormatPrice(order.Total),
		paymentMethodLabel(order.PaymentMethod),
	)

	return s.SendToAdmin(ctx, strings.TrimSpace(message))
}

// NotifyPaymentProof tells admins a transfer proof is waiting for review.
func (s *TelegramService) NotifyPaymentProof(ctx context.Context, order OrderNotification) error {
	message := fmt.Sprintf(`<b>🧾 BUKTI TRANSFER MASUK</b>
<b>📋 Pesanan:</b> %s
<b>💰 Total:</b> %s
<b>🔗 Bukti:</b> %s`,
		html.EscapeString(order.OrderNumber),
		pricing.FormatPrice(order.Total),
		html.EscapeString(order.ProofURL),
	)
	return s.SendToAdmin(ctx, message)
}

// NotifyPaymentDecision records an approve/reject outcome in the admin chat.
func (s *TelegramService) NotifyPaymentDecision(ctx context.Context, decision PaymentDecisionNotification) error {
	title := "✅ PEMBAYARAN DITERIMA"
	if decision.Decision == DecisionReject {
		title = "❌ PEMBAYARAN DITOLAK"
	}

	message := fmt.Sprintf(`<b>%s</b>
<b>📋 Pesanan:</b> %s
<b>💰 Total:</b> %s
<b>📝 Catatan:</b> %s`,
		title,
		html.EscapeString(decision.OrderNumber),
		pricing.FormatPrice(decision.Total),
		html.EscapeString(orDash(decision.Notes)),
	)
	return s.SendToAdmin(ctx, message)
}

// NotifyNewAppointment announces a booking.
func (s *TelegramService) NotifyNewAppointment(ctx context.Context, appt AppointmentNotification) error {
	message := fmt.Sprintf(`<b>📅 BOOKING BARU</b>
<b>👤 Pelanggan:</b> %s
<b>✂️ Layanan:</b> %s
<b>💈 Barber:</b> %s
<b>🕒 Waktu:</b> %s`,
		html.EscapeString(orDash(appt.CustomerName)),
		html.EscapeString(appt.ServiceName),
		html.EscapeString(appt.BarberName),
		appt.StartTime.In(s.location).Format("02 Jan 2006 15:04 MST"),
	)
	return s.SendToAdmin(ctx, message)
}

func paymentMethodLabel(m models.PaymentMethod) string {
	if m == models.PaymentTransfer {
		return "Transfer bank"
	}
	return "Tunai"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// notifyAsync runs fn on its own goroutine so notification delivery never
// blocks or fails the request that triggered it.
func notifyAsync(log *zap.Logger, event string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Warn("admin notification failed", zap.String("event", event), zap.Error(err))
		}
	}()
}
