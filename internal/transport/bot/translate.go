package bot

import (
	"errors"

	errs "github.com/NastyaGoryachaya/silver-price-monitor/internal/errors"
)

func translateBotError(err error) string {
	switch {
	case errors.Is(err, errs.ErrTargetNotFound):
		return "Không tìm thấy mục tiêu theo dõi."
	case errors.Is(err, errs.ErrSnapshotMissing):
		return "Chưa có dữ liệu giá. Dùng /check để lấy giá."
	case errors.Is(err, errs.ErrLoginNotFound):
		return "Mã đăng nhập không tồn tại."
	case errors.Is(err, errs.ErrInvalidTransition):
		return "Mã đăng nhập đã hết hạn hoặc đã được dùng."
	case errors.Is(err, errs.ErrFeedUnavailable):
		return "Không kết nối được nguồn giá, vui lòng thử lại sau."
	default:
		return "Lỗi dịch vụ, vui lòng thử lại sau."
	}
}
