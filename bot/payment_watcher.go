package bot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"broadcaster/bot/common"
	"broadcaster/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// transferPattern matches ProBot's confirmation, e.g.
// ":moneybag: | **alice**, has transferred `$5000` to <@123>"
var transferPattern = regexp.MustCompile("has transferred\\s*`\\$?([0-9][0-9,]*)`\\s*to\\s*\\**<@!?([0-9]+)>")

// Transfer is a parsed ProBot credit transfer
type Transfer struct {
	Amount      int64
	RecipientID string
}

// ParseTransfer extracts the amount and recipient from a ProBot transfer message
func ParseTransfer(content string) (Transfer, bool) {
	match := transferPattern.FindStringSubmatch(content)
	if match == nil {
		return Transfer{}, false
	}

	amount, err := strconv.ParseInt(strings.ReplaceAll(match[1], ",", ""), 10, 64)
	if err != nil || amount <= 0 {
		return Transfer{}, false
	}

	return Transfer{Amount: amount, RecipientID: match[2]}, true
}

// messageFetcher loads a message by channel and ID
type messageFetcher func(channelID, messageID string) (*discordgo.Message, error)

// PaymentWatcher credits payments when ProBot confirms a transfer to the recipient
type PaymentWatcher struct {
	paymentService service.PaymentService
	probotID       string
	channelID      string
	recipientID    string
}

func NewPaymentWatcher(paymentService service.PaymentService, probotID, channelID, recipientID string) *PaymentWatcher {
	return &PaymentWatcher{
		paymentService: paymentService,
		probotID:       probotID,
		channelID:      channelID,
		recipientID:    recipientID,
	}
}

// HandleMessageCreate is registered as a discordgo handler
func (w *PaymentWatcher) HandleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	fetch := func(channelID, messageID string) (*discordgo.Message, error) {
		return s.ChannelMessage(channelID, messageID)
	}

	reply := w.process(context.Background(), m.Message, fetch)
	if reply == "" {
		return
	}

	if _, err := s.ChannelMessageSendReply(m.ChannelID, reply, m.Reference()); err != nil {
		log.Errorf("Error replying to payment confirmation: %v", err)
	}
}

// process returns the reply to post, or "" when the message is not a payment
func (w *PaymentWatcher) process(ctx context.Context, m *discordgo.Message, fetch messageFetcher) string {
	if m.Author == nil || m.Author.ID != w.probotID {
		return ""
	}
	if w.channelID != "" && m.ChannelID != w.channelID {
		return ""
	}

	transfer, ok := ParseTransfer(m.Content)
	if !ok || transfer.RecipientID != w.recipientID {
		return ""
	}

	senderID, err := w.resolveSender(m, fetch)
	if err != nil {
		log.WithFields(log.Fields{
			"messageID": m.ID,
			"amount":    transfer.Amount,
			"error":     err,
		}).Warn("Could not resolve payment sender")
		return ""
	}

	payment, tx, err := w.paymentService.ClaimAndCredit(ctx, senderID, transfer.Amount)
	if err != nil {
		log.WithFields(log.Fields{
			"discordID": senderID,
			"amount":    transfer.Amount,
			"error":     err,
		}).Error("Failed to credit payment")
		return ""
	}
	if payment == nil {
		log.WithFields(log.Fields{
			"discordID": senderID,
			"amount":    transfer.Amount,
		}).Info("Transfer did not match an active payment")
		return ""
	}

	return fmt.Sprintf("✅ Payment received from <@%d>. **%s credits** added.", senderID, common.FormatCredits(tx.Amount))
}

// resolveSender reads the payer from the command message ProBot replied to
func (w *PaymentWatcher) resolveSender(m *discordgo.Message, fetch messageFetcher) (int64, error) {
	ref := m.ReferencedMessage
	if ref == nil {
		if m.MessageReference == nil {
			return 0, fmt.Errorf("transfer message has no reference")
		}
		channelID := m.MessageReference.ChannelID
		if channelID == "" {
			channelID = m.ChannelID
		}
		var err error
		ref, err = fetch(channelID, m.MessageReference.MessageID)
		if err != nil {
			return 0, fmt.Errorf("failed to fetch referenced message: %w", err)
		}
	}
	if ref == nil || ref.Author == nil {
		return 0, fmt.Errorf("referenced message has no author")
	}

	return strconv.ParseInt(ref.Author.ID, 10, 64)
}
