package history

import (
	"broadcaster/service"

	"github.com/bwmarrin/discordgo"
)

// pageSize is how many transactions /history shows
const pageSize = 10

type Feature struct {
	ledgerService service.LedgerService
}

func New(ledgerService service.LedgerService) *Feature {
	return &Feature{
		ledgerService: ledgerService,
	}
}

func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	f.handleHistory(s, i)
}
