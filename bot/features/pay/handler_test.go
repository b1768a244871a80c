package pay

import (
	"testing"
	"time"

	"broadcaster/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPaymentEmbed(t *testing.T) {
	payment := &models.Payment{
		Amount:    5000,
		ExpiresAt: time.Unix(1700001800, 0),
	}

	embed := buildPaymentEmbed(payment, 10, "111")

	assert.Contains(t, embed.Description, "**5,000** ProBot credits to <@111>")
	assert.Contains(t, embed.Description, "`#credit <@111> 5000`")
	assert.Contains(t, embed.Description, "**10 broadcast credits**")
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "<t:1700001800:R>", embed.Fields[0].Value)
}
