package broadcast

import (
	"broadcaster/service"

	"github.com/bwmarrin/discordgo"
)

// maxMessageLength is Discord's limit for a plain message
const maxMessageLength = 2000

type Feature struct {
	accountService service.AccountService
	executor       *Executor
}

func New(accountService service.AccountService, executor *Executor) *Feature {
	return &Feature{
		accountService: accountService,
		executor:       executor,
	}
}

func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	f.handleBroadcast(s, i)
}
