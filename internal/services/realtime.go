package services

import "fmt"

// Real-time event names
const (
	EventNewThreadMessage = "nova_mensagem_na_conversa"
	EventNewNotification  = "nova_notificacao"
	EventNewReply         = "nova_resposta"
)

// Publisher delivers an event to the subscribers of a named channel. It must not
// block and must not report delivery failure to the caller.
type Publisher interface {
	Publish(channel, event string, payload any)
}

// ThreadChannel is the channel operators viewing a thread subscribe to
func ThreadChannel(threadID uint) string {
	return fmt.Sprintf("conversa-%d", threadID)
}

// UserChannel is a user's private channel
func UserChannel(userID uint) string {
	return fmt.Sprintf("user_%d", userID)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, string, any) {}

func publisherOrNop(p Publisher) Publisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
