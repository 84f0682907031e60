package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/mjunaidjbr/salawat-tally-bot/internal/config"
	dhikr "github.com/mjunaidjbr/salawat-tally-bot/internal/models"
	"github.com/mjunaidjbr/salawat-tally-bot/internal/services"
)

const (
	maxVoiceBytes  = 10 << 20
	defaultFileURL = "https://api.telegram.org/file/bot"
)

// Sender is the part of the Bot API the handler needs. *bot.Bot satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
}

type MessageInterpreter interface {
	Interpret(ctx context.Context, msg services.InboundMessage) (services.Outcome, error)
	CounterConfigured(ctx context.Context, groupID, topicID int64) (bool, error)
	Leaderboard(ctx context.Context, groupID, topicID int64) (*dhikr.Leaderboard, error)
}

type Policy interface {
	IsPrivileged(userID int64) bool
}

type Directory interface {
	Remember(ctx context.Context, userID int64, name string) error
	Names(ctx context.Context, userIDs []int64) map[int64]string
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, encoding string) (string, float32, error)
}

// Handler turns Telegram updates into interpreter calls and chat replies.
type Handler struct {
	cfg         *config.BotConfig
	voice       *config.VoiceConfig
	interpreter MessageInterpreter
	policy      Policy
	directory   Directory
	transcriber Transcriber
	httpClient  *http.Client
	fileURL     string
	keyboard    models.ReplyMarkup
}

func NewHandler(cfg *config.BotConfig, voice *config.VoiceConfig, interpreter MessageInterpreter, policy Policy, directory Directory, transcriber Transcriber) *Handler {
	if voice == nil {
		voice = &config.VoiceConfig{}
	}
	return &Handler{
		cfg:         cfg,
		voice:       voice,
		interpreter: interpreter,
		policy:      policy,
		directory:   directory,
		transcriber: transcriber,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		fileURL:     defaultFileURL,
		keyboard:    replyKeyboard(cfg.Keyboard),
	}
}

// HandleUpdate processes one update. Only messages posted into a topic of a
// group are considered.
func (h *Handler) HandleUpdate(ctx context.Context, s Sender, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return
	}
	if string(msg.Chat.Type) == "private" || msg.MessageThreadID == 0 {
		return
	}

	from := msg.From
	name := services.DisplayName(from.ID, from.FirstName, from.LastName, from.Username)
	if err := h.directory.Remember(ctx, from.ID, name); err != nil {
		log.Printf("[BOT] Failed to remember name of user %d: %v", from.ID, err)
	}

	privileged := h.policy.IsPrivileged(from.ID)

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	if h.isLeaderboardCommand(text) {
		h.handleLeaderboard(ctx, s, msg, privileged)
		return
	}

	if text == "" {
		if msg.Voice == nil || !h.voice.Enabled {
			return
		}
		text = h.transcribeVoice(ctx, s, msg.Voice)
	}

	inbound := services.InboundMessage{
		GroupID:    msg.Chat.ID,
		TopicID:    int64(msg.MessageThreadID),
		UserID:     from.ID,
		Text:       text,
		Privileged: privileged,
	}

	outcome, err := h.interpreter.Interpret(ctx, inbound)
	if err != nil {
		log.Printf("[BOT] Failed to interpret message %d in chat %d: %v", msg.ID, msg.Chat.ID, err)
		return
	}

	switch {
	case outcome.Added():
		h.send(ctx, s, &bot.SendMessageParams{
			ChatID:          msg.Chat.ID,
			MessageThreadID: msg.MessageThreadID,
			Text:            addedText(name, outcome.Delta, outcome.Title, outcome.Total),
			ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
			ReplyMarkup:     h.keyboard,
		})
	case outcome.Removed():
		h.send(ctx, s, &bot.SendMessageParams{
			ChatID:          msg.Chat.ID,
			MessageThreadID: msg.MessageThreadID,
			Text:            removedText(-outcome.Delta, outcome.Title, outcome.Total),
			ReplyMarkup:     h.keyboard,
		})
	case outcome.Kind == services.OutcomeRejected:
		h.removeMessage(ctx, s, msg)
	}
}

func (h *Handler) isLeaderboardCommand(text string) bool {
	command := h.cfg.LeaderboardCommand
	if command == "" {
		return false
	}
	text = strings.TrimSpace(text)
	if text == command {
		return true
	}
	return strings.HasPrefix(text, command+"@") && !strings.ContainsAny(text, " \n")
}

func (h *Handler) handleLeaderboard(ctx context.Context, s Sender, msg *models.Message, privileged bool) {
	configured, err := h.interpreter.CounterConfigured(ctx, msg.Chat.ID, int64(msg.MessageThreadID))
	if err != nil {
		log.Printf("[BOT] Failed to resolve counter for chat %d topic %d: %v", msg.Chat.ID, msg.MessageThreadID, err)
		return
	}
	if !configured {
		return
	}

	if !privileged {
		h.removeMessage(ctx, s, msg)
		return
	}

	board, err := h.interpreter.Leaderboard(ctx, msg.Chat.ID, int64(msg.MessageThreadID))
	if errors.Is(err, services.ErrCounterNotFound) {
		return
	}
	if err != nil {
		log.Printf("[BOT] Failed to build leaderboard for chat %d topic %d: %v", msg.Chat.ID, msg.MessageThreadID, err)
		return
	}

	if len(board.Contributors) > 0 {
		ids := make([]int64, len(board.Contributors))
		for i, c := range board.Contributors {
			ids[i] = c.UserID
		}
		names := h.directory.Names(ctx, ids)
		for i := range board.Contributors {
			board.Contributors[i].Name = names[board.Contributors[i].UserID]
		}
	}

	h.send(ctx, s, &bot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		MessageThreadID: msg.MessageThreadID,
		Text:            leaderboardText(board),
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
	})
}

// removeMessage deletes the offending message and leaves the removal notice
// in its topic.
func (h *Handler) removeMessage(ctx context.Context, s Sender, msg *models.Message) {
	if _, err := s.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
	}); err != nil {
		log.Printf("[BOT] Failed to delete message %d in chat %d: %v", msg.ID, msg.Chat.ID, err)
	}

	h.send(ctx, s, &bot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		MessageThreadID: msg.MessageThreadID,
		Text:            h.cfg.RemovalNotice,
	})
}

func (h *Handler) send(ctx context.Context, s Sender, params *bot.SendMessageParams) {
	if _, err := s.SendMessage(ctx, params); err != nil {
		log.Printf("[BOT] Failed to send message to chat %v: %v", params.ChatID, err)
	}
}

// transcribeVoice returns the voice note as amount text, or "" when it
// cannot be understood.
func (h *Handler) transcribeVoice(ctx context.Context, s Sender, voice *models.Voice) string {
	if h.transcriber == nil {
		return ""
	}
	if h.voice.MaxDuration > 0 && time.Duration(voice.Duration)*time.Second > h.voice.MaxDuration {
		log.Printf("[VOICE] Voice note of %ds exceeds limit", voice.Duration)
		return ""
	}

	audio, err := h.downloadFile(ctx, s, voice.FileID)
	if err != nil {
		log.Printf("[VOICE] Failed to download voice note: %v", err)
		return ""
	}

	transcript, confidence, err := h.transcriber.Transcribe(ctx, audio, "OGG_OPUS")
	if err != nil {
		log.Printf("[VOICE] Transcription failed: %v", err)
		return ""
	}
	log.Printf("[VOICE] Transcribed %q (confidence %.2f)", transcript, confidence)
	return services.NormalizeSpokenAmount(transcript)
}

func (h *Handler) downloadFile(ctx context.Context, s Sender, fileID string) ([]byte, error) {
	file, err := s.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, err
	}

	url := h.fileURL + h.cfg.Token + "/" + file.FilePath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download returned %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxVoiceBytes))
}
