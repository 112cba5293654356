package hub

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"trims", "  hi \n", "hi"},
		{"escapes tags", "<script>alert(1)</script>", "&lt;script&gt;alert(1)&lt;/script&gt;"},
		{"keeps ampersand", "a & b", "a & b"},
		{"already escaped", "&lt;b&gt;", "&lt;b&gt;"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"", " ", "<", ">", "<<>>", " <hi> ", "&lt;", "a<b>c", "\t<x>\n",
		"<&gt;>", "한국어 <메시지>", strings.Repeat("<>", 100),
	}
	for _, in := range inputs {
		once := Sanitize(in)
		require.Equal(t, once, Sanitize(once), "input %q", in)
	}
}

func TestSanitizer_Validate(t *testing.T) {
	s, err := NewSanitizer(SanitizerConfig{})
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 1, 2, 13, 4, 5, 0, time.UTC) }

	const id = "abc123ef-0000-4000-8000-000000000000"

	tests := []struct {
		name    string
		raw     string
		want    ChatMessage
		wantErr error
	}{
		{
			name: "guest name and escaping",
			raw:  `{"message":" <hi> ","username":""}`,
			want: ChatMessage{Text: "&lt;hi&gt;", Username: "Guest-abc123ef", Timestamp: "13:04:05", SenderID: id},
		},
		{
			name: "username escaped and timestamp kept",
			raw:  `{"message":"yo","username":" <b>bob</b> ","timestamp":"10:00"}`,
			want: ChatMessage{Text: "yo", Username: "&lt;b&gt;bob&lt;/b&gt;", Timestamp: "10:00", SenderID: id},
		},
		{
			name: "missing username",
			raw:  `{"message":"yo"}`,
			want: ChatMessage{Text: "yo", Username: "Guest-abc123ef", Timestamp: "13:04:05", SenderID: id},
		},
		{
			name: "long nickname capped",
			raw:  `{"message":"yo","username":"abcdefghijklmnopqrstuvwxyz"}`,
			want: ChatMessage{Text: "yo", Username: "abcdefghijklmnopqrst", Timestamp: "13:04:05", SenderID: id},
		},
		{name: "missing message", raw: `{"username":"bob"}`, wantErr: ErrMalformedPayload},
		{name: "null message", raw: `{"message":null}`, wantErr: ErrMalformedPayload},
		{name: "numeric message", raw: `{"message":42}`, wantErr: ErrMalformedPayload},
		{name: "numeric username", raw: `{"message":"x","username":7}`, wantErr: ErrMalformedPayload},
		{name: "not an object", raw: `["message"]`, wantErr: ErrMalformedPayload},
		{name: "garbage", raw: `{`, wantErr: ErrMalformedPayload},
		{name: "empty payload", raw: ``, wantErr: ErrMalformedPayload},
		{name: "blank message", raw: `{"message":"   "}`, wantErr: ErrEmptyMessage},
		{name: "too long", raw: `{"message":"` + strings.Repeat("a", 501) + `"}`, wantErr: ErrTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Validate(id, json.RawMessage(tt.raw))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				var verr *ValidationError
				require.True(t, errors.As(err, &verr))
				require.NotEmpty(t, verr.Msg)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizer_LengthCountsRunes(t *testing.T) {
	s, err := NewSanitizer(SanitizerConfig{MaxMessageLength: 5})
	require.NoError(t, err)

	_, err = s.Validate("id", json.RawMessage(`{"message":"안녕하세요"}`))
	require.NoError(t, err)

	_, err = s.Validate("id", json.RawMessage(`{"message":"안녕하세요!"}`))
	require.ErrorIs(t, err, ErrTooLong)
}

func TestSanitizer_LengthCheckedBeforeEscaping(t *testing.T) {
	s, err := NewSanitizer(SanitizerConfig{})
	require.NoError(t, err)

	msg, err := s.Validate("id", rawJSON(t, map[string]string{"message": strings.Repeat("<", 500)}))
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("&lt;", 500), msg.Text)
}

func TestSanitizer_Censor(t *testing.T) {
	s, err := NewSanitizer(SanitizerConfig{CensoredWords: []string{"darn", " Heck ", ""}})
	require.NoError(t, err)

	msg, err := s.Validate("id", json.RawMessage(`{"message":"Darn it, what the heck"}`))
	require.NoError(t, err)
	require.Equal(t, "**** it, what the ****", msg.Text)
}
