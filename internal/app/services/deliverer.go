package services

import (
	"context"

	"github.com/alonePlayerr1/MAI-Bot/internal/platform/logging"
	"github.com/alonePlayerr1/MAI-Bot/internal/transport/telegram"
)

// ReportDeliverer sends the finished report back to the chat.
type ReportDeliverer struct {
	sender telegram.Sender
	logger *logging.Logger
}

// NewReportDeliverer wires the deliverer.
func NewReportDeliverer(sender telegram.Sender, logger *logging.Logger) *ReportDeliverer {
	return &ReportDeliverer{sender: sender, logger: logger}
}

// Deliver uploads the report document. An empty path means the report stage
// failed earlier and only the warning is sent.
func (d *ReportDeliverer) Deliver(ctx context.Context, chatID, reportPath string) error {
	if reportPath == "" {
		d.notify(ctx, chatID, msgReportMissing)
		d.notify(ctx, chatID, msgRunDone)
		return nil
	}

	if err := d.sender.SendChatAction(ctx, chatID, telegram.ActionUploadDocument); err != nil {
		d.logger.DebugTag("BOT", "chat action failed for chat %s: %v", chatID, err)
	}
	if err := d.sender.SendDocument(ctx, chatID, reportPath, msgReportCaption); err != nil {
		return err
	}
	d.notify(ctx, chatID, msgRunDone)
	return nil
}

func (d *ReportDeliverer) notify(ctx context.Context, chatID, text string) {
	if err := d.sender.SendText(ctx, chatID, text); err != nil {
		d.logger.WarnTag("BOT", "failed to message chat %s: %v", chatID, err)
	}
}
