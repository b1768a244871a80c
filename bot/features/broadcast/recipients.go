package broadcast

import (
	"fmt"
	"slices"

	"broadcaster/models"

	"github.com/bwmarrin/discordgo"
)

const memberPageSize = 1000

// fetchMembers pages through every member of the guild
func fetchMembers(s *discordgo.Session, guildID string) ([]*discordgo.Member, error) {
	var (
		members []*discordgo.Member
		after   string
	)
	for {
		page, err := s.GuildMembers(guildID, after, memberPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list guild members: %w", err)
		}
		members = append(members, page...)
		if len(page) < memberPageSize {
			return members, nil
		}
		after = page[len(page)-1].User.ID
	}
}

// selectRecipients filters guild members by target. Bots and the sender are never included.
func selectRecipients(members []*discordgo.Member, target models.TargetType, roleID, senderID string, isOnline func(userID string) bool) []string {
	recipients := make([]string, 0, len(members))
	for _, m := range members {
		if m.User == nil || m.User.Bot || m.User.ID == senderID {
			continue
		}

		switch target {
		case models.TargetTypeOnline:
			if !isOnline(m.User.ID) {
				continue
			}
		case models.TargetTypeOffline:
			if isOnline(m.User.ID) {
				continue
			}
		case models.TargetTypeRole:
			if !slices.Contains(m.Roles, roleID) {
				continue
			}
		}

		recipients = append(recipients, m.User.ID)
	}
	return recipients
}

// presenceChecker reports online status from the gateway state cache
func presenceChecker(s *discordgo.Session, guildID string) func(string) bool {
	return func(userID string) bool {
		p, err := s.State.Presence(guildID, userID)
		if err != nil || p == nil {
			return false
		}
		return p.Status != discordgo.StatusOffline && p.Status != discordgo.StatusInvisible
	}
}
