package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/intent-bot/internal/chatbot"
	"github.com/xaenox/intent-bot/internal/models"
	"github.com/xaenox/intent-bot/internal/voice"
	"go.uber.org/zap"
)

const historyMessages = 5

// API is the part of the Telegram client the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetFileDirectURL(fileID string) (string, error)
	StopReceivingUpdates()
}

type Bot struct {
	api     API
	service *chatbot.Service
	client  *http.Client
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func New(token string, service *chatbot.Service, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))
	return NewWithAPI(api, service, logger), nil
}

// NewWithAPI builds a bot on an existing client.
func NewWithAPI(api API, service *chatbot.Service, logger *zap.Logger) *Bot {
	return &Bot{
		api:     api,
		service: service,
		client:  http.DefaultClient,
		logger:  logger,
	}
}

// Start handles updates until ctx is cancelled or the update channel closes,
// then waits for in-flight messages.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.wg.Add(1)
			go func(message *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleMessage(ctx, message)
			}(update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	if message.Voice != nil {
		b.handleVoice(ctx, message)
		return
	}

	content := message.Text
	if content == "" {
		content = message.Caption
	}
	if strings.TrimSpace(content) == "" {
		b.sendMessage(message.Chat.ID, "Please send me a text or voice message.")
		return
	}

	reply := b.service.Handle(ctx, content, models.SourceTelegram)
	b.sendReply(message, reply)
}

func (b *Bot) handleVoice(ctx context.Context, message *tgbotapi.Message) {
	audio, err := b.download(ctx, message.Voice.FileID)
	if err != nil {
		b.logger.Error("Failed to download voice message",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, voice.Message(voice.ErrServiceUnavailable))
		return
	}
	defer audio.Close()

	transcript, reply, err := b.service.HandleVoice(ctx, audio, "voice.ogg", models.SourceTelegram)
	if err != nil {
		if errors.Is(err, chatbot.ErrVoiceDisabled) {
			b.sendMessage(message.Chat.ID, "Voice messages are not supported here. Please type your message.")
			return
		}
		b.sendErrorMessage(message.Chat.ID, voice.Message(err))
		return
	}

	b.sendMessage(message.Chat.ID, "You said: "+transcript)
	b.sendReply(message, reply)
}

func (b *Bot) download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (b *Bot) sendReply(message *tgbotapi.Message, reply models.Reply) {
	msg := tgbotapi.NewMessage(message.Chat.ID, reply.Response)
	msg.ReplyToMessageID = message.MessageID
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send reply",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID),
			zap.String("tag", reply.Tag))
	}

	if reply.Ended {
		b.sendMessage(message.Chat.ID, chatbot.FarewellMessage)
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "history":
		b.handleHistory(ctx, message)
	case "about":
		b.handleAbout(message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to the chatbot! 🤖
Type a message and I'll figure out what you mean and answer.

You can also send a voice message.
Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/history - Show recent conversation turns
/about - How the chatbot works

Say "bye" to end the conversation.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleAbout(message *tgbotapi.Message) {
	about := `This chatbot classifies each message into an intent using TF-IDF features over word n-grams and a logistic regression model, then answers with one of that intent's responses.`

	b.sendMessage(message.Chat.ID, about)
}

func (b *Bot) handleHistory(ctx context.Context, message *tgbotapi.Message) {
	entries, err := b.service.History(ctx, historyMessages)
	if err != nil {
		b.logger.Error("Failed to get history",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't retrieve the conversation history.")
		return
	}

	if len(entries) == 0 {
		b.sendMessage(message.Chat.ID, "No conversation history available.")
		return
	}

	var sb strings.Builder
	sb.WriteString("*Recent conversation:*\n\n")
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("_%s_\n", escapeMarkdown(e.Timestamp.Format("2006-01-02 15:04:05"))))
		sb.WriteString(fmt.Sprintf("*You:* %s\n", escapeMarkdown(e.Input)))
		sb.WriteString(fmt.Sprintf("*Chatbot:* %s\n", escapeMarkdown(e.Response)))
		if e.Tag != "" {
			sb.WriteString("#" + escapeMarkdown(strings.ReplaceAll(e.Tag, " ", "_")) + "\n")
		}
		sb.WriteString("\n")
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, sb.String())
	msg.ParseMode = "MarkdownV2"
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send history message",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

// escapeMarkdown escapes MarkdownV2 special characters.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
