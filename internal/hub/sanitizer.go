package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultMaxMessageLength  = 500
	DefaultMaxNicknameLength = 20

	timestampLayout = "15:04:05"
)

var escaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// Sanitize trims surrounding whitespace and neutralizes markup by replacing
// angle brackets with their HTML entities. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s string) string {
	return escaper.Replace(strings.TrimSpace(s))
}

// SanitizerConfig bounds accepted input.
type SanitizerConfig struct {
	MaxMessageLength  int
	MaxNicknameLength int
	CensoredWords     []string
}

// Sanitizer validates raw message payloads and turns them into ChatMessages
// safe to echo to every client.
type Sanitizer struct {
	validate    *validator.Validate
	textRule    string
	maxLength   int
	maxNickname int
	censor      *Censor
	now         func() time.Time
}

type inboundMessage struct {
	Message   *string `json:"message" validate:"required"`
	Username  *string `json:"username"`
	Timestamp *string `json:"timestamp"`
}

// NewSanitizer builds a Sanitizer. Non-positive limits fall back to the
// defaults.
func NewSanitizer(cfg SanitizerConfig) (*Sanitizer, error) {
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DefaultMaxMessageLength
	}
	if cfg.MaxNicknameLength <= 0 {
		cfg.MaxNicknameLength = DefaultMaxNicknameLength
	}

	censor, err := NewCensor(cfg.CensoredWords)
	if err != nil {
		return nil, fmt.Errorf("build censor: %w", err)
	}

	return &Sanitizer{
		validate:    validator.New(),
		textRule:    fmt.Sprintf("required,max=%d", cfg.MaxMessageLength),
		maxLength:   cfg.MaxMessageLength,
		maxNickname: cfg.MaxNicknameLength,
		censor:      censor,
		now:         time.Now,
	}, nil
}

// Validate decodes raw and returns the cleaned message sent by connID.
// Errors are always *ValidationError.
func (s *Sanitizer) Validate(connID string, raw json.RawMessage) (ChatMessage, error) {
	var in inboundMessage
	if len(raw) == 0 || json.Unmarshal(raw, &in) != nil {
		return ChatMessage{}, newValidationError(ErrMalformedPayload, "Invalid message format.")
	}
	if err := s.validate.Struct(in); err != nil {
		return ChatMessage{}, newValidationError(ErrMalformedPayload, "Invalid message format.")
	}

	text := strings.TrimSpace(*in.Message)
	if err := s.checkText(text); err != nil {
		return ChatMessage{}, err
	}

	return ChatMessage{
		Text:      Sanitize(s.censor.Apply(text)),
		Username:  s.username(connID, in.Username),
		Timestamp: s.timestamp(in.Timestamp),
		SenderID:  connID,
	}, nil
}

func (s *Sanitizer) checkText(text string) error {
	err := s.validate.Var(text, s.textRule)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "max" {
		return newValidationError(ErrTooLong,
			fmt.Sprintf("Message is too long (max %d characters).", s.maxLength))
	}
	return newValidationError(ErrEmptyMessage, "Message is empty.")
}

func (s *Sanitizer) username(connID string, name *string) string {
	if name == nil {
		return GuestName(connID)
	}

	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return GuestName(connID)
	}
	if runes := []rune(trimmed); len(runes) > s.maxNickname {
		trimmed = strings.TrimSpace(string(runes[:s.maxNickname]))
	}
	return Sanitize(trimmed)
}

func (s *Sanitizer) timestamp(ts *string) string {
	if ts == nil || strings.TrimSpace(*ts) == "" {
		return s.now().Format(timestampLayout)
	}
	return Sanitize(*ts)
}
