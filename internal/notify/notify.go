package notify

import (
	"context"
	"fmt"

	"github.com/myatko/domainwatch/internal/domain"
	"github.com/myatko/domainwatch/internal/tzutil"
)

// Notifier delivers one alert to a channel (Telegram, Slack, ...).
type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans an alert out to every configured channel. All channels are
// attempted; the first error is kept.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var firstErr error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, title, text); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DownAlert renders the alert for a domain that just went DOWN.
func DownAlert(res domain.ProbeResult) (title, text string) {
	errMsg := res.Error
	if errMsg == "" {
		errMsg = "Unknown error"
	}
	title = "🚨 DOMAIN DOWN ALERT"
	text = fmt.Sprintf(
		"Domain: %s\nStatus: DOWN\nError: %s\nTime: %s",
		res.Domain, errMsg, tzutil.Format(res.Timestamp),
	)
	return title, text
}
