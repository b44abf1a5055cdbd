package smtpnotifier

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/notify"
)

func TestNotifier_SendsRenderedMessage(t *testing.T) {
	t.Parallel()

	n, err := New(Config{Host: "mail.test", Port: "587", Username: "bot@seatshare.test", Password: "pw", FromName: "Seatshare"})
	require.NoError(t, err)

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		assert.Equal(t, "bot@seatshare.test", from)
		assert.NotNil(t, a)
		return nil
	}

	err = n.NotifyCancellation(context.Background(), notify.Cancellation{
		TripID:         "t1",
		RecipientEmail: "rider@example.com",
		RecipientName:  "Rae",
		TripDate:       "Sat 3 Oct 2026",
		DepartureLabel: "Oakland",
		ArrivalLabel:   "Tahoe\r\nBcc: x@evil.test",
		RefundAmount:   12,
	})
	require.NoError(t, err)

	assert.Equal(t, "mail.test:587", gotAddr)
	assert.Equal(t, []string{"rider@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "From: Seatshare <bot@seatshare.test>\r\n")
	assert.Contains(t, gotMsg, "Subject: Trip cancelled: Oakland to Tahoe  Bcc: x@evil.test\r\n")
	assert.Contains(t, gotMsg, "12 credits have been returned")
	assert.Contains(t, gotMsg, "on Sat 3 Oct 2026")
	assert.False(t, strings.Contains(gotMsg, "\r\nBcc:"), "header injection must be neutralized")
}

func TestNotifier_WrapsSendFailure(t *testing.T) {
	t.Parallel()

	n, err := New(Config{Host: "mail.test", Port: "25", FromEmail: "noreply@seatshare.test"})
	require.NoError(t, err)
	n.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("550 mailbox unavailable") }

	err = n.NotifyCancellation(context.Background(), notify.Cancellation{RecipientEmail: "rider@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send email")
}

func TestNew_RequiresHostAndSender(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	assert.Error(t, err)
	_, err = New(Config{Host: "mail.test"})
	assert.Error(t, err)
}
