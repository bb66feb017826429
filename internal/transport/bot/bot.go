package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/config"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/interfaces"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/session"
	"gopkg.in/telebot.v4"
)

const (
	uniqueConfirm = "login_confirm"
	uniqueDecline = "login_decline"
)

var (
	btnConfirm = telebot.Btn{Unique: uniqueConfirm, Text: "✅ Подтвердить"}
	btnDecline = telebot.Btn{Unique: uniqueDecline, Text: "✖️ Отклонить"}
)

// Logins - часть LoginManager, нужная боту.
type Logins interface {
	Scan(code, account string) (*session.LoginFlow, error)
	Confirm(id string, sender interfaces.Sender) (session.Info, error)
	Decline(id string) error
}

// Bot - Telegram-транспорт: команды, QR-вход и отправка снимков.
type Bot struct {
	bot     *telebot.Bot
	monitor interfaces.Monitor
	runner  interfaces.CycleRunner
	logins  Logins
	sender  *Sender
	logger  *slog.Logger
}

// New создаёт бота; logins может быть nil, тогда /start работает только как справка.
func New(cfg config.TelegramConfig, monitor interfaces.Monitor, runner interfaces.CycleRunner, logger *slog.Logger) (*Bot, error) {
	const defaultPollTimeout = 10 * time.Second

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}
	poll := cfg.PollTimeout
	if poll <= 0 {
		poll = defaultPollTimeout
	}

	b, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: poll},
		OnError: func(err error, c telebot.Context) {
			logger.Error("bot.handler failed", slog.String("error", err.Error()))
		},
	})
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		bot:     b,
		monitor: monitor,
		runner:  runner,
		sender:  NewSender(b, logger),
		logger:  logger,
	}

	// маршруты команд
	b.Handle("/start", bot.handleStart)
	b.Handle("/help", bot.handleStart)
	b.Handle("/price", bot.handlePrice)
	b.Handle("/check", bot.handleCheck)
	b.Handle(&btnConfirm, bot.handleConfirm)
	b.Handle(&btnDecline, bot.handleDecline)
	return bot, nil
}

// AttachLogins подключает менеджер входа (он сам зависит от ссылки бота).
func (b *Bot) AttachLogins(l Logins) {
	b.logins = l
}

// Sender - отправитель сообщений от имени бота.
func (b *Bot) Sender() *Sender {
	return b.sender
}

// Username - имя бота для deep link.
func (b *Bot) Username() string {
	return b.bot.Me.Username
}

// LoginLink - ссылка, которую кодирует QR: открывает бота с кодом входа.
func (b *Bot) LoginLink(code string) string {
	return DeepLink(b.Username(), code)
}

// Start запускает long polling
func (b *Bot) Start(ctx context.Context) {
	go b.bot.Start()
	<-ctx.Done()
}

// Stop останавливает бота
func (b *Bot) Stop() {
	b.bot.Stop()
}
