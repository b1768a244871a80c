package broadcast

import (
	"testing"

	"broadcaster/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestSelectRecipients(t *testing.T) {
	members := []*discordgo.Member{
		{User: &discordgo.User{ID: "1"}, Roles: []string{"vip"}},
		{User: &discordgo.User{ID: "2"}},
		{User: &discordgo.User{ID: "3", Bot: true}, Roles: []string{"vip"}},
		{User: &discordgo.User{ID: "4"}, Roles: []string{"vip"}},
		{User: nil},
	}
	online := map[string]bool{"1": true, "3": true}
	isOnline := func(id string) bool { return online[id] }

	tests := []struct {
		name   string
		target models.TargetType
		roleID string
		sender string
		want   []string
	}{
		{"all skips bots", models.TargetTypeAll, "", "", []string{"1", "2", "4"}},
		{"all skips sender", models.TargetTypeAll, "", "2", []string{"1", "4"}},
		{"online", models.TargetTypeOnline, "", "", []string{"1"}},
		{"offline", models.TargetTypeOffline, "", "", []string{"2", "4"}},
		{"role", models.TargetTypeRole, "vip", "4", []string{"1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectRecipients(members, tt.target, tt.roleID, tt.sender, isOnline)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildResultEmbed(t *testing.T) {
	embed := buildResultEmbed(&Result{
		Broadcast: &models.Broadcast{MessagesSent: 1200, MessagesFailed: 3, CreditsUsed: 1200},
		Skipped:   4,
	})

	assert.Equal(t, "1,200", embed.Fields[0].Value)
	assert.Equal(t, "3", embed.Fields[1].Value)
	assert.Equal(t, "1,200", embed.Fields[2].Value)
	assert.Contains(t, embed.Description, "4 members were skipped")
}
