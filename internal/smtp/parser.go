package smtp

import (
	"io"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/welldanyogia/svp-backend/internal/services"
	"github.com/welldanyogia/svp-backend/internal/validator"
)

// ParsedEmail represents a parsed email message
type ParsedEmail struct {
	From        string
	Subject     string
	MessageID   string
	InReplyTo   string
	References  []string
	BodyText    string
	BodyHTML    string
	Attachments []ParsedAttachment
}

// ParsedAttachment represents an attached or inline MIME part
type ParsedAttachment struct {
	Filename    string
	ContentType string
	ContentID   string
	Content     []byte
}

// ParseEmail parses an email from an io.Reader
func ParseEmail(r io.Reader) (*ParsedEmail, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, err
	}

	parsed := &ParsedEmail{
		From:       strings.TrimSpace(env.GetHeader("From")),
		Subject:    env.GetHeader("Subject"),
		MessageID:  validator.NormalizeMessageID(env.GetHeader("Message-Id")),
		InReplyTo:  env.GetHeader("In-Reply-To"),
		References: validator.ParseMessageIDs(env.GetHeader("References")),
		BodyText:   env.Text,
		BodyHTML:   env.HTML,
	}

	for _, att := range env.Attachments {
		parsed.Attachments = append(parsed.Attachments, toParsedAttachment(att))
	}

	// Inline and related parts are kept even without a name so cid: references resolve
	for _, att := range append(env.Inlines, env.OtherParts...) {
		if att.FileName == "" && att.ContentID == "" {
			continue
		}
		parsed.Attachments = append(parsed.Attachments, toParsedAttachment(att))
	}

	return parsed, nil
}

func toParsedAttachment(p *enmime.Part) ParsedAttachment {
	return ParsedAttachment{
		Filename:    p.FileName,
		ContentType: p.ContentType,
		ContentID:   p.ContentID,
		Content:     p.Content,
	}
}

// ToInbound converts a parsed message into the pipeline's input. envelopeFrom
// is used when the message has no From header.
func (p *ParsedEmail) ToInbound(envelopeFrom, recipient string) *services.InboundMail {
	sender := p.From
	if sender == "" {
		sender = envelopeFrom
	}

	mail := &services.InboundMail{
		Sender:     sender,
		Recipient:  recipient,
		Subject:    p.Subject,
		BodyHTML:   p.BodyHTML,
		BodyPlain:  p.BodyText,
		MessageID:  p.MessageID,
		InReplyTo:  p.InReplyTo,
		References: p.References,
	}
	for _, att := range p.Attachments {
		mail.Parts = append(mail.Parts, services.InboundPart{
			FileName:    att.Filename,
			ContentType: att.ContentType,
			ContentID:   att.ContentID,
			Data:        att.Content,
		})
	}
	return mail
}
