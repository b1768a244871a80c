package broadcast

import (
	"context"
	"fmt"
	"time"

	"broadcaster/models"
	"broadcaster/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Messenger is the part of the Discord session that delivers DMs
type Messenger interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Request describes one broadcast
type Request struct {
	SenderID   int64
	GuildID    string
	GuildName  string
	Message    string
	TargetType models.TargetType
	Recipients []string
}

// Result is the recorded outcome of a broadcast
type Result struct {
	Broadcast   *models.Broadcast
	Reservation *models.Transaction // spend taken before sending
	Refund      *models.Transaction // undelivered part of the reservation, nil when everything went out
	Skipped     int                 // recipients dropped because the balance could not cover them
}

// Executor reserves one credit per recipient, sends the DMs, then refunds
// every reserved credit that did not turn into a delivered message.
type Executor struct {
	messenger        Messenger
	accountService   service.AccountService
	ledgerService    service.LedgerService
	broadcastService service.BroadcastService
	sendDelay        time.Duration
}

func NewExecutor(messenger Messenger, accountService service.AccountService, ledgerService service.LedgerService, broadcastService service.BroadcastService) *Executor {
	return &Executor{
		messenger:        messenger,
		accountService:   accountService,
		ledgerService:    ledgerService,
		broadcastService: broadcastService,
		sendDelay:        250 * time.Millisecond,
	}
}

// Execute delivers the message and records the broadcast. Recipients beyond the
// sender's balance are skipped up front. Nothing is sent unless the reservation
// for the remaining recipients succeeds.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	account, err := e.accountService.Get(ctx, req.SenderID)
	if err != nil {
		return nil, err
	}
	if account.Credits <= 0 {
		return nil, fmt.Errorf("%w: have 0, need 1", service.ErrInsufficientCredits)
	}

	recipients := req.Recipients
	skipped := 0
	if int64(len(recipients)) > account.Credits {
		skipped = len(recipients) - int(account.Credits)
		recipients = recipients[:account.Credits]
	}
	reserved := int64(len(recipients))

	// A concurrent spend can still win between Get and here; the conditional
	// decrement then rejects the reservation and no DM goes out.
	reservation, err := e.ledgerService.Spend(ctx, req.SenderID, reserved,
		fmt.Sprintf("Broadcast to %s (%d recipients)", guildLabel(req), reserved))
	if err != nil {
		return nil, fmt.Errorf("failed to reserve credits: %w", err)
	}

	sent, failed := e.deliver(ctx, recipients, req.Message)

	// The caller may have gone away; the accounting must still land
	settleCtx := context.WithoutCancel(ctx)

	broadcast, err := e.broadcastService.RecordBroadcast(settleCtx, models.BroadcastRecord{
		DiscordID:      req.SenderID,
		GuildID:        req.GuildID,
		GuildName:      req.GuildName,
		Message:        req.Message,
		TargetType:     req.TargetType,
		MessagesSent:   sent,
		MessagesFailed: failed,
		CreditsUsed:    sent,
	})
	if err != nil {
		log.WithFields(log.Fields{
			"discordID": req.SenderID,
			"reserved":  reserved,
			"sent":      sent,
		}).WithError(err).Error("Failed to record broadcast after delivery")
	}

	result := &Result{Broadcast: broadcast, Reservation: reservation, Skipped: skipped}

	if unused := reserved - sent; unused > 0 {
		refund, refundErr := e.ledgerService.Refund(settleCtx, req.SenderID, unused,
			fmt.Sprintf("Broadcast refund for %s (%d failed, %d not attempted)", guildLabel(req), failed, unused-failed))
		if refundErr != nil {
			log.WithFields(log.Fields{
				"discordID": req.SenderID,
				"unused":    unused,
			}).WithError(refundErr).Error("Failed to refund unused broadcast credits")
			return nil, fmt.Errorf("failed to refund %d unused credits: %w", unused, refundErr)
		}
		result.Refund = refund
	}

	if err != nil {
		return nil, fmt.Errorf("failed to record broadcast: %w", err)
	}
	return result, nil
}

// deliver sends to each recipient in turn until ctx is done.
// Recipients not attempted count as neither sent nor failed.
func (e *Executor) deliver(ctx context.Context, recipients []string, message string) (sent, failed int64) {
	for idx, recipientID := range recipients {
		if ctx.Err() != nil {
			return sent, failed
		}
		if idx > 0 && e.sendDelay > 0 {
			select {
			case <-ctx.Done():
				return sent, failed
			case <-time.After(e.sendDelay):
			}
		}

		if err := e.send(recipientID, message); err != nil {
			failed++
			log.WithFields(log.Fields{
				"recipient": recipientID,
				"error":     err,
			}).Debug("Failed to deliver broadcast DM")
			continue
		}
		sent++
	}
	return sent, failed
}

func guildLabel(req Request) string {
	if req.GuildName != "" {
		return req.GuildName
	}
	return req.GuildID
}

func (e *Executor) send(recipientID, message string) error {
	channel, err := e.messenger.UserChannelCreate(recipientID)
	if err != nil {
		return fmt.Errorf("open DM channel: %w", err)
	}
	if _, err := e.messenger.ChannelMessageSend(channel.ID, message); err != nil {
		return fmt.Errorf("send DM: %w", err)
	}
	return nil
}
