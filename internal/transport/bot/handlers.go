package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/pkg/botfmt"
	"gopkg.in/telebot.v4"
)

const helpText = "Bot giá bạc. Lệnh:\n" +
	"/price - giá mới nhất\n" +
	"/check - kiểm tra biến động ngay bây giờ\n" +
	"/start {mã} - đăng nhập phiên gửi tin (mã từ QR)"

// handleStart - справка, либо шаг «scanned» QR-входа, если передан код
func (b *Bot) handleStart(c telebot.Context) error {
	code := strings.TrimSpace(c.Message().Payload)
	if code == "" || b.logins == nil {
		return c.Send(helpText)
	}

	account := accountOf(c.Sender())
	flow, err := b.logins.Scan(code, account)
	if err != nil {
		b.logger.Warn("bot.login scan failed",
			slog.String("account", account),
			slog.String("error", err.Error()),
		)
		return c.Send(translateBotError(err))
	}

	st := flow.Status()
	menu := &telebot.ReplyMarkup{}
	menu.Inline(menu.Row(
		menu.Data(btnConfirm.Text, uniqueConfirm, st.ID),
		menu.Data(btnDecline.Text, uniqueDecline, st.ID),
	))
	return c.Send(fmt.Sprintf("Xác nhận đăng nhập phiên «%s»?", st.SessionKey), menu)
}

// handleConfirm - шаг «confirmed»: бот регистрируется как сессия
func (b *Bot) handleConfirm(c telebot.Context) error {
	if b.logins == nil {
		return c.Respond()
	}
	info, err := b.logins.Confirm(c.Data(), b.sender)
	if err != nil {
		b.logger.Warn("bot.login confirm failed", slog.String("id", c.Data()), slog.String("error", err.Error()))
		_ = c.Respond(&telebot.CallbackResponse{Text: "Không thể xác nhận"})
		return c.Edit(translateBotError(err))
	}
	_ = c.Respond(&telebot.CallbackResponse{Text: "OK"})
	return c.Edit(fmt.Sprintf("Phiên «%s» đã kết nối.", info.Key))
}

func (b *Bot) handleDecline(c telebot.Context) error {
	if b.logins == nil {
		return c.Respond()
	}
	if err := b.logins.Decline(c.Data()); err != nil {
		b.logger.Warn("bot.login decline failed", slog.String("id", c.Data()), slog.String("error", err.Error()))
	}
	_ = c.Respond()
	return c.Edit("Đăng nhập đã bị từ chối.")
}

// handlePrice - последний сохранённый снимок цели чата
func (b *Bot) handlePrice(c telebot.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	target, ok := targetForChat(b.monitor.Targets(), c.Chat().ID)
	if !ok {
		return c.Send("Chưa cấu hình mục tiêu theo dõi.")
	}
	snap, err := b.monitor.Latest(ctx, target.Key)
	if err != nil {
		b.logger.Error("bot.price failed", slog.String("target", target.Key), slog.String("error", err.Error()))
		return c.Send(translateBotError(err))
	}
	if snap == nil {
		return c.Send("Chưa có dữ liệu giá. Dùng /check để lấy giá.")
	}
	return c.Send(botfmt.FormatSnapshotDetails(*snap))
}

// handleCheck - внеочередной цикл для цели чата
func (b *Bot) handleCheck(c telebot.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	target, ok := targetForChat(b.monitor.Targets(), c.Chat().ID)
	if !ok {
		return c.Send("Chưa cấu hình mục tiêu theo dõi.")
	}
	res, err := b.runner.RunNow(ctx, target.Key, nil)
	if err != nil {
		b.logger.Warn("bot.check failed",
			slog.String("target", target.Key),
			slog.String("outcome", string(res.Outcome)),
			slog.String("error", err.Error()),
		)
	}
	return c.Send(DescribeResult(res))
}

// targetForChat - цель, отправляющая в этот чат, иначе первая из списка.
func targetForChat(targets []domain.Target, chatID int64) (domain.Target, bool) {
	if len(targets) == 0 {
		return domain.Target{}, false
	}
	id := strconv.FormatInt(chatID, 10)
	for _, t := range targets {
		if t.ThreadID == id {
			return t, true
		}
	}
	return targets[0], true
}

func accountOf(u *telebot.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}
