package pay

import (
	"broadcaster/service"

	"github.com/bwmarrin/discordgo"
)

type Feature struct {
	accountService service.AccountService
	ledgerService  service.LedgerService
	paymentService service.PaymentService
	recipientID    string
}

// New creates the /pay feature. recipientID is the account ProBot transfers must target.
func New(accountService service.AccountService, ledgerService service.LedgerService, paymentService service.PaymentService, recipientID string) *Feature {
	return &Feature{
		accountService: accountService,
		ledgerService:  ledgerService,
		paymentService: paymentService,
		recipientID:    recipientID,
	}
}

func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	f.handlePay(s, i)
}
