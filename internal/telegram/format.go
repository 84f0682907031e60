package telegram

import (
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"
	dhikr "github.com/mjunaidjbr/salawat-tally-bot/internal/models"
)

const (
	maxLeaderboardName = 17
	noContributions    = "No contributions yet!"
)

var medals = []string{"🥇", "🥈", "🥉"}

func addedText(name string, amount int64, title string, total int64) string {
	return fmt.Sprintf("%s added %d to %s\nTotal count: %d", name, amount, title, total)
}

func removedText(amount int64, title string, total int64) string {
	return fmt.Sprintf("Deleted %d from %s\nTotal count: %d", amount, title, total)
}

// leaderboardText renders a board with contributor names already filled in.
func leaderboardText(board *dhikr.Leaderboard) string {
	if len(board.Contributors) == 0 {
		return noContributions
	}

	var sb strings.Builder
	sb.WriteString("🏆 𝗟𝗘𝗔𝗗𝗘𝗥𝗕𝗢𝗔𝗥𝗗 🏆\n\n")
	fmt.Fprintf(&sb, "📿 %s 📿\n\n", board.Title)
	sb.WriteString("𝗥𝐚𝐧𝐤    𝐔𝐬𝐞𝐫      𝐂𝐨𝐮𝐧𝐭\n")

	for _, c := range board.Contributors {
		rank := fmt.Sprint(c.Rank)
		if c.Rank >= 1 && c.Rank <= len(medals) {
			rank = medals[c.Rank-1]
		}
		fmt.Fprintf(&sb, "%s | %s ⮕ %d\n\n", rank, truncateName(c.Name), c.Total)
	}
	return sb.String()
}

func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= maxLeaderboardName {
		return name
	}
	return string(runes[:maxLeaderboardName]) + "..."
}

func replyKeyboard(rows [][]string) models.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	keyboard := make([][]models.KeyboardButton, len(rows))
	for i, row := range rows {
		keyboard[i] = make([]models.KeyboardButton, len(row))
		for j, text := range row {
			keyboard[i][j] = models.KeyboardButton{Text: text}
		}
	}
	return &models.ReplyKeyboardMarkup{
		Keyboard:        keyboard,
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
}
