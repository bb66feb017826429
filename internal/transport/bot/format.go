package bot

import (
	"net/url"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/pkg/botfmt"
)

// DeepLink - https://t.me/<bot>?start=<code>
func DeepLink(username, code string) string {
	return "https://t.me/" + username + "?start=" + url.QueryEscape(code)
}

// DescribeResult - короткий ответ на /check.
func DescribeResult(res domain.CycleResult) string {
	switch res.Outcome {
	case domain.OutcomeNoChange:
		return "Giá không đổi."
	case domain.OutcomeChangedBelowThreshold:
		return withCaption("Giá thay đổi nhưng dưới ngưỡng thông báo.", res)
	case domain.OutcomeChangedAndSent:
		return withCaption("Đã gửi cập nhật giá.", res)
	case domain.OutcomeChangedWithWarning:
		return withCaption("Giá thay đổi nhưng chưa có phiên gửi tin.", res)
	case domain.OutcomeChangedWithError:
		return withCaption("Giá thay đổi nhưng gửi thất bại: "+res.Error, res)
	default:
		return "Không lấy được giá: " + res.Error
	}
}

func withCaption(head string, res domain.CycleResult) string {
	if res.Snapshot == nil || res.Change == nil {
		return head
	}
	return head + "\n\n" + botfmt.FormatChangeCaption(*res.Snapshot, *res.Change)
}
