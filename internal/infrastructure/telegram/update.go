package telegram

import (
	"strconv"
	"strings"
	"time"

	"github.com/labassist/backend/internal/domain"
)

// Update is the subset of a Bot API update the service reads.
type Update struct {
	UpdateID      int64    `json:"update_id"`
	Message       *Message `json:"message,omitempty"`
	EditedMessage *Message `json:"edited_message,omitempty"`
}

// Message is an incoming chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text,omitempty"`
	Caption   string `json:"caption,omitempty"`
}

// User is the sender of a message.
type User struct {
	ID       int64  `json:"id"`
	IsBot    bool   `json:"is_bot"`
	Username string `json:"username,omitempty"`
}

// Chat is the conversation a message belongs to.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// InboundMessage converts the update into a text event. ok is false for
// updates without text, such as stickers or service messages, and for
// messages sent by bots.
func (u Update) InboundMessage() (domain.InboundMessage, bool) {
	msg := u.Message
	if msg == nil {
		msg = u.EditedMessage
	}
	if msg == nil || (msg.From != nil && msg.From.IsBot) {
		return domain.InboundMessage{}, false
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if strings.TrimSpace(text) == "" {
		return domain.InboundMessage{}, false
	}

	return domain.InboundMessage{
		SenderID:   strconv.FormatInt(msg.Chat.ID, 10),
		Text:       text,
		ReceivedAt: time.Unix(msg.Date, 0).UTC(),
	}, true
}
