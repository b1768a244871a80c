package common

import (
	"fmt"
	"strconv"
	"time"
)

// TimestampRelative renders as "in 30 minutes" / "2 hours ago"
const TimestampRelative = "R"

// FormatCredits renders an amount with comma grouping, e.g. 1,234,567
func FormatCredits(amount int64) string {
	digits := strconv.FormatInt(amount, 10)
	sign := ""
	if amount < 0 {
		sign, digits = "-", digits[1:]
	}

	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	out := []byte(sign + digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		out = append(out, ',')
		out = append(out, digits[i:i+3]...)
	}
	return string(out)
}

// FormatDiscordTimestamp renders t as a <t:unix:style> tag shown in the reader's timezone
func FormatDiscordTimestamp(t time.Time, style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}
