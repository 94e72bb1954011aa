// Package telegram sends bet-check notifications through the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rewired-gh/lottosmart/internal/logger"
	"github.com/rewired-gh/lottosmart/internal/models"
)

// maxListedWinners caps how many winning bets one message lists.
const maxListedWinners = 10

// Client sends notifications to a single chat.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// Checker runs a check of the pending bets on demand.
type Checker interface {
	CheckAll(ctx context.Context, game string) (models.CheckSummary, error)
}

// ListenForCommands answers bot commands from the configured chat until ctx
// is done. Supported: /ping and /conferir [jogo].
func (c *Client) ListenForCommands(ctx context.Context, checker Checker) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := c.bot.GetUpdatesChan(cfg)

	go func() {
		defer c.bot.StopReceivingUpdates()
		for {
			select {
			case <-ctx.Done():
				return
			case upd, open := <-updates:
				if !open {
					return
				}
				msg := upd.Message
				if msg == nil || !msg.IsCommand() || msg.Chat.ID != c.chatID {
					continue
				}
				if err := c.sendMarkdownV2(runCommand(ctx, checker, msg.Command(), strings.TrimSpace(msg.CommandArguments()))); err != nil {
					logger.Warn("Failed to answer /%s: %v", msg.Command(), err)
				}
			}
		}
	}()
}

// runCommand returns the MarkdownV2 reply for one command.
func runCommand(ctx context.Context, checker Checker, command, args string) string {
	switch command {
	case "ping":
		return "Pong"
	case "conferir":
		if checker == nil {
			return escapeMarkdownV2("Conferência indisponível.")
		}
		summary, err := checker.CheckAll(ctx, args)
		if err != nil {
			return escapeMarkdownV2("Falha na conferência: " + err.Error())
		}
		if summary.Winners == 0 {
			return escapeMarkdownV2(fmt.Sprintf("Conferidas: %d. Nenhuma aposta premiada.", summary.Checked))
		}
		return formatWinners(summary)
	default:
		return escapeMarkdownV2("Comandos: /ping, /conferir [jogo]")
	}
}

// sendMarkdownV2 sends a MarkdownV2 message, retrying with linear backoff.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := range c.maxRetries {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError reports a failed background check run.
// Call it only for the first failure of a consecutive run.
func (c *Client) SendError(runErr error) error {
	text := fmt.Sprintf("⚠️ *Falha na conferência de apostas*\n`%s`", escapeMarkdownV2(runErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery reports that background checks work again.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Conferência normalizada* após %d falha\\(s\\) consecutiva\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// SendWinners announces the winning bets of a check-all run.
func (c *Client) SendWinners(summary models.CheckSummary) error {
	return c.sendMarkdownV2(formatWinners(summary))
}

// formatWinners renders a check summary as a MarkdownV2 message.
func formatWinners(summary models.CheckSummary) string {
	var b strings.Builder
	b.WriteString("🎉 *Apostas premiadas*\n\n")
	fmt.Fprintf(&b, "Conferidas: %d \\| Premiadas: %d\n", summary.Checked, summary.Winners)
	if summary.TotalPrize > 0 {
		fmt.Fprintf(&b, "Total: *%s*\n", escapeMarkdownV2(formatBRL(summary.TotalPrize)))
	}
	b.WriteString("\n")

	listed := 0
	for _, bet := range summary.Results {
		if bet.Result == nil || !bet.Result.IsWinner {
			continue
		}
		if listed == maxListedWinners {
			fmt.Fprintf(&b, "\\.\\.\\. e mais %d\n", summary.Winners-listed)
			break
		}
		listed++

		r := bet.Result
		tier := fmt.Sprintf("%d acertos", r.MatchCount)
		if r.PrizeTier != nil {
			tier = *r.PrizeTier
		}
		line := fmt.Sprintf("%d. %s #%d: %s", listed, bet.Game, r.DrawNumber, tier)
		if r.PrizeValue != nil {
			line += " " + formatBRL(*r.PrizeValue)
		}
		b.WriteString(escapeMarkdownV2(line))
		b.WriteString("\n")
		fmt.Fprintf(&b, "   `%s`\n", joinNumbers(bet.Numbers))
	}
	return b.String()
}

func formatBRL(v float64) string {
	return "R$ " + strconv.FormatFloat(v, 'f', 2, 64)
}

func joinNumbers(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%02d", n)
	}
	return strings.Join(parts, " ")
}

const markdownV2Special = "_*[]()~`>#+-=|{}.!"

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var out strings.Builder
	out.Grow(len(text) + len(text)/4)
	for _, r := range text {
		if strings.ContainsRune(markdownV2Special, r) {
			out.WriteByte('\\')
		}
		out.WriteRune(r)
	}
	return out.String()
}
