package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	errs "github.com/NastyaGoryachaya/silver-price-monitor/internal/errors"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/interfaces"
	"gopkg.in/telebot.v4"
)

// Messenger - методы *telebot.Bot, которыми пользуется Sender.
type Messenger interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
	SendAlbum(to telebot.Recipient, a telebot.Album, opts ...interface{}) ([]telebot.Message, error)
}

// Sender отправляет снимки в чат: одно вложение - фото с подписью,
// несколько - альбом, без вложений - текст.
type Sender struct {
	api    Messenger
	logger *slog.Logger
}

var _ interfaces.Sender = (*Sender)(nil)

func NewSender(api Messenger, logger *slog.Logger) *Sender {
	return &Sender{api: api, logger: logger}
}

func (s *Sender) SendMessage(ctx context.Context, content domain.MessageContent, threadID string, threadType domain.ThreadType) (domain.SendResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.SendResult{}, fmt.Errorf("%w: %v", errs.ErrSendFailed, err)
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(threadID), 10, 64)
	if err != nil {
		return domain.SendResult{}, fmt.Errorf("%w: bad chat id %q", errs.ErrSendFailed, threadID)
	}
	to := telebot.ChatID(chatID)

	var ids []string
	switch len(content.Attachments) {
	case 0:
		msg, err := s.api.Send(to, content.Text)
		if err != nil {
			return domain.SendResult{}, s.fail(threadID, threadType, err)
		}
		ids = append(ids, strconv.Itoa(msg.ID))
	case 1:
		photo := &telebot.Photo{File: telebot.FromDisk(content.Attachments[0]), Caption: content.Text}
		msg, err := s.api.Send(to, photo)
		if err != nil {
			return domain.SendResult{}, s.fail(threadID, threadType, err)
		}
		ids = append(ids, strconv.Itoa(msg.ID))
	default:
		album := make(telebot.Album, 0, len(content.Attachments))
		for i, path := range content.Attachments {
			p := &telebot.Photo{File: telebot.FromDisk(path)}
			if i == 0 {
				p.Caption = content.Text
			}
			album = append(album, p)
		}
		msgs, err := s.api.SendAlbum(to, album)
		if err != nil {
			return domain.SendResult{}, s.fail(threadID, threadType, err)
		}
		for _, m := range msgs {
			ids = append(ids, strconv.Itoa(m.ID))
		}
	}

	s.logger.Debug("bot.sent",
		slog.String("chat", threadID),
		slog.String("thread_type", string(threadType)),
		slog.Int("messages", len(ids)),
	)
	return domain.SendResult{MessageIDs: ids}, nil
}

func (s *Sender) fail(threadID string, threadType domain.ThreadType, err error) error {
	s.logger.Error("bot.send failed",
		slog.String("chat", threadID),
		slog.String("thread_type", string(threadType)),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%w: %v", errs.ErrSendFailed, err)
}
