package mailer

import (
	"context"
	"time"

	"github.com/amoylab/hydrowatch/internal/apiserver/database"
	"github.com/amoylab/hydrowatch/pkg/metrics"
	"go.uber.org/zap"
)

// Outbox sends mail and parks failed deliveries in the mail_outbox table
type Outbox struct {
	db          database.Database
	mailer      Mailer
	metrics     *metrics.Metrics
	logger      *zap.Logger
	maxAttempts int
}

func NewOutbox(db database.Database, m Mailer, mt *metrics.Metrics, maxAttempts int, lg *zap.Logger) *Outbox {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Outbox{db: db, mailer: m, metrics: mt, logger: lg.Named("outbox"), maxAttempts: maxAttempts}
}

// Deliver sends msg now. On failure the message is queued for retry and
// Deliver reports false; the caller's data is never rolled back.
func (o *Outbox) Deliver(ctx context.Context, msg Message) bool {
	err := o.mailer.Send(ctx, msg)
	if err == nil {
		o.metrics.Mail(msg.Kind, "sent")
		return true
	}
	o.metrics.Mail(msg.Kind, "failed")
	o.logger.Warn("mail delivery failed, queueing for retry",
		zap.String("kind", msg.Kind),
		zap.String("to", msg.To),
		zap.Error(err))

	row := &database.MailOutbox{
		Recipient: msg.To,
		Subject:   msg.Subject,
		Body:      msg.Body,
		Attempts:  1,
		LastError: err.Error(),
	}
	if qerr := o.db.EnqueueMail(context.WithoutCancel(ctx), row); qerr != nil {
		o.logger.Error("failed to queue mail", zap.String("to", msg.To), zap.Error(qerr))
	}
	return false
}

// Flush retries up to batch queued messages
func (o *Outbox) Flush(ctx context.Context, batch int) (sent, failed int, err error) {
	pending, err := o.db.PendingMail(ctx, o.maxAttempts, batch)
	if err != nil {
		return 0, 0, err
	}
	for _, row := range pending {
		msg := Message{Kind: "outbox", To: row.Recipient, Subject: row.Subject, Body: row.Body}
		if sendErr := o.mailer.Send(ctx, msg); sendErr != nil {
			failed++
			o.metrics.Mail(msg.Kind, "failed")
			if err := o.db.MarkMailFailed(ctx, row.ID, sendErr.Error()); err != nil {
				return sent, failed, err
			}
			if row.Attempts+1 >= o.maxAttempts {
				o.logger.Error("giving up on mail",
					zap.Uint("id", row.ID),
					zap.String("to", row.Recipient),
					zap.Error(sendErr))
			}
			continue
		}
		sent++
		o.metrics.Mail(msg.Kind, "sent")
		if err := o.db.MarkMailSent(ctx, row.ID, time.Now()); err != nil {
			return sent, failed, err
		}
	}
	return sent, failed, nil
}
