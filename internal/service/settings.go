package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
	"github.com/and161185/kesef/internal/notify/telegram"
	"github.com/and161185/kesef/internal/repository"
	"go.uber.org/zap"
)

// TestMessage is sent when the user asks to verify the Telegram settings.
const TestMessage = "🔔 <b>הודעת טסט</b>\n\nהחיבור לטלגרם עובד!"

var writableSettings = map[string]bool{
	model.SettingTelegramBotToken: true,
	model.SettingTelegramChatID:   true,
	model.SettingDailyReportTime:  true,
}

var hiddenSettings = map[string]bool{
	model.SettingMasterPasswordHash: true,
}

// Messenger delivers formatted text to the configured Telegram chat.
type Messenger interface {
	// Send reports whether the message was delivered. Missing configuration is
	// not an error: nothing is sent and Send returns false.
	Send(ctx context.Context, text string) bool
}

// TelegramMessenger reads the bot token and chat ID from settings on every send,
// so updated settings take effect without a restart.
type TelegramMessenger struct {
	settings repository.SettingRepository
	sender   telegram.Sender
	log      *zap.Logger
}

// NewTelegramMessenger constructs a Messenger.
func NewTelegramMessenger(settings repository.SettingRepository, sender telegram.Sender, logger *zap.Logger) *TelegramMessenger {
	return &TelegramMessenger{settings: settings, sender: sender, log: logger.Named("messenger")}
}

// Send looks up the destination and delivers text.
func (m *TelegramMessenger) Send(ctx context.Context, text string) bool {
	token, err := m.settings.Get(ctx, model.SettingTelegramBotToken)
	if err != nil {
		m.logLookup(err)
		return false
	}
	chatID, err := m.settings.Get(ctx, model.SettingTelegramChatID)
	if err != nil {
		m.logLookup(err)
		return false
	}
	if strings.TrimSpace(token) == "" || strings.TrimSpace(chatID) == "" {
		m.log.Debug("telegram not configured")
		return false
	}
	if err := m.sender.SendMessage(ctx, token, chatID, text); err != nil {
		m.log.Warn("telegram send failed", zap.Error(err))
		return false
	}
	return true
}

func (m *TelegramMessenger) logLookup(err error) {
	if errors.Is(err, errs.ErrNotFound) {
		m.log.Debug("telegram not configured")
		return
	}
	m.log.Error("telegram settings lookup", zap.Error(err))
}

// SettingsService exposes the user-editable key-value settings.
type SettingsService interface {
	// All returns every readable setting.
	All(ctx context.Context) (map[string]string, error)
	// Update stores the writable keys in values; other keys are ignored.
	Update(ctx context.Context, values map[string]string) error
	// SendTest sends a test message with the stored Telegram settings.
	SendTest(ctx context.Context) bool
}

// ReportTimeFunc is called after daily_report_time changes.
type ReportTimeFunc func(hour, minute int) error

type SettingsServiceImpl struct {
	repo         repository.SettingRepository
	messenger    Messenger
	onReportTime ReportTimeFunc
	log          *zap.Logger
}

// NewSettingsService constructs SettingsService. onReportTime may be nil.
func NewSettingsService(repo repository.SettingRepository, messenger Messenger, onReportTime ReportTimeFunc, logger *zap.Logger) *SettingsServiceImpl {
	return &SettingsServiceImpl{repo: repo, messenger: messenger, onReportTime: onReportTime, log: logger.Named("settings")}
}

// All filters out reserved keys.
func (s *SettingsServiceImpl) All(ctx context.Context) (map[string]string, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(all))
	for k, v := range all {
		if !hiddenSettings[k] {
			out[k] = v
		}
	}
	return out, nil
}

// Update validates all values first, then writes them.
func (s *SettingsServiceImpl) Update(ctx context.Context, values map[string]string) error {
	var (
		hour, minute int
		timeChanged  bool
	)
	pending := make(map[string]string, len(values))
	for k, v := range values {
		if !writableSettings[k] {
			continue
		}
		v = strings.TrimSpace(v)
		if k == model.SettingDailyReportTime {
			h, m, err := ParseReportTime(v)
			if err != nil {
				return err
			}
			hour, minute, timeChanged = h, m, true
			v = fmt.Sprintf("%02d:%02d", h, m)
		}
		pending[k] = v
	}
	for k, v := range pending {
		if err := s.repo.Set(ctx, k, v); err != nil {
			return err
		}
	}
	if timeChanged && s.onReportTime != nil {
		if err := s.onReportTime(hour, minute); err != nil {
			return err
		}
		s.log.Info("daily report rescheduled", zap.Int("hour", hour), zap.Int("minute", minute))
	}
	return nil
}

// SendTest delivers TestMessage.
func (s *SettingsServiceImpl) SendTest(ctx context.Context) bool {
	return s.messenger.Send(ctx, TestMessage)
}

// ParseReportTime parses an HH:MM wall-clock time.
func ParseReportTime(v string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: daily_report_time must be HH:MM", errs.ErrValidation)
	}
	return t.Hour(), t.Minute(), nil
}
