package bot_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	errs "github.com/NastyaGoryachaya/silver-price-monitor/internal/errors"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/transport/bot"
	"gopkg.in/telebot.v4"
)

type sent struct {
	to   telebot.Recipient
	what interface{}
}

type fakeMessenger struct {
	sent   []sent
	albums []telebot.Album
	err    error
}

func (f *fakeMessenger) Send(to telebot.Recipient, what interface{}, _ ...interface{}) (*telebot.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, sent{to: to, what: what})
	return &telebot.Message{ID: len(f.sent)}, nil
}

func (f *fakeMessenger) SendAlbum(_ telebot.Recipient, a telebot.Album, _ ...interface{}) ([]telebot.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.albums = append(f.albums, a)
	out := make([]telebot.Message, len(a))
	for i := range a {
		out[i] = telebot.Message{ID: 100 + i}
	}
	return out, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSender_Photo(t *testing.T) {
	t.Parallel()
	api := &fakeMessenger{}
	s := bot.NewSender(api, discard())

	res, err := s.SendMessage(context.Background(), domain.MessageContent{
		Text:        "🔺 +29,000",
		Attachments: []string{"/tmp/price-1.png"},
	}, "-100123", domain.ThreadGroup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.MessageIDs) != 1 || res.MessageIDs[0] != "1" {
		t.Fatalf("ids = %v", res.MessageIDs)
	}
	if api.sent[0].to.Recipient() != "-100123" {
		t.Fatalf("recipient = %s", api.sent[0].to.Recipient())
	}
	photo, ok := api.sent[0].what.(*telebot.Photo)
	if !ok {
		t.Fatalf("expected photo, got %T", api.sent[0].what)
	}
	if photo.Caption != "🔺 +29,000" || photo.File.FileLocal != "/tmp/price-1.png" {
		t.Fatalf("photo = %+v", photo)
	}
}

func TestSender_TextAndAlbum(t *testing.T) {
	t.Parallel()
	api := &fakeMessenger{}
	s := bot.NewSender(api, discard())

	if _, err := s.SendMessage(context.Background(), domain.MessageContent{Text: "hi"}, "42", domain.ThreadUser); err != nil {
		t.Fatalf("text: %v", err)
	}
	if api.sent[0].what != "hi" {
		t.Fatalf("text payload = %v", api.sent[0].what)
	}

	res, err := s.SendMessage(context.Background(), domain.MessageContent{
		Text:        "caption",
		Attachments: []string{"a.png", "b.png"},
	}, "42", domain.ThreadUser)
	if err != nil {
		t.Fatalf("album: %v", err)
	}
	if len(res.MessageIDs) != 2 || len(api.albums[0]) != 2 {
		t.Fatalf("album result = %v", res.MessageIDs)
	}
	if first := api.albums[0][0].(*telebot.Photo); first.Caption != "caption" {
		t.Fatalf("caption on first item = %q", first.Caption)
	}
}

func TestSender_Failures(t *testing.T) {
	t.Parallel()

	// некорректный id чата
	s := bot.NewSender(&fakeMessenger{}, discard())
	if _, err := s.SendMessage(context.Background(), domain.MessageContent{Text: "x"}, "not-a-chat", domain.ThreadUser); !errors.Is(err, errs.ErrSendFailed) {
		t.Fatalf("expected ErrSendFailed, got %v", err)
	}

	// ошибка API
	s = bot.NewSender(&fakeMessenger{err: errors.New("telegram: bot was blocked by the user (403)")}, discard())
	_, err := s.SendMessage(context.Background(), domain.MessageContent{Attachments: []string{"a.png"}}, "42", domain.ThreadUser)
	if !errors.Is(err, errs.ErrSendFailed) || !strings.Contains(err.Error(), "403") {
		t.Fatalf("unexpected error: %v", err)
	}

	// отменённый контекст
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.SendMessage(ctx, domain.MessageContent{Text: "x"}, "42", domain.ThreadUser); !errors.Is(err, errs.ErrSendFailed) {
		t.Fatalf("expected ErrSendFailed on cancelled ctx, got %v", err)
	}
}

func TestDeepLink(t *testing.T) {
	t.Parallel()
	if got := bot.DeepLink("silver_bot", "abc123"); got != "https://t.me/silver_bot?start=abc123" {
		t.Fatalf("link = %q", got)
	}
}

func TestDescribeResult(t *testing.T) {
	t.Parallel()
	buy := int64(29000)
	pct := 1.26
	q := domain.Quote{ProductName: "BẠC MIẾNG PHÚ QUÝ 999 1 LƯỢNG", BuyPrice: 2329000}
	snap := domain.Snapshot{Quotes: []domain.Quote{q}, Primary: q}
	change := domain.PriceChange{HasChanged: true, BuyPriceChange: &buy, BuyPricePercent: &pct, BuyPriceDirection: domain.DirectionUp}

	if got := bot.DescribeResult(domain.CycleResult{Outcome: domain.OutcomeNoChange}); got != "Giá không đổi." {
		t.Fatalf("noChange = %q", got)
	}
	got := bot.DescribeResult(domain.CycleResult{Outcome: domain.OutcomeChangedAndSent, Snapshot: &snap, Change: &change})
	if !strings.HasPrefix(got, "Đã gửi cập nhật giá.") || !strings.Contains(got, "29,000") {
		t.Fatalf("sent = %q", got)
	}
	got = bot.DescribeResult(domain.CycleResult{Outcome: domain.OutcomeFatalError, Error: "price feed unavailable"})
	if !strings.Contains(got, "price feed unavailable") {
		t.Fatalf("fatal = %q", got)
	}
}
