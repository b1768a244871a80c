package credits

import (
	"broadcaster/service"

	"github.com/bwmarrin/discordgo"
)

type Feature struct {
	accountService service.AccountService
	statsService   service.StatsService
}

func New(accountService service.AccountService, statsService service.StatsService) *Feature {
	return &Feature{
		accountService: accountService,
		statsService:   statsService,
	}
}

func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	f.handleCredits(s, i)
}
