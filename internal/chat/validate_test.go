package chat

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batch(n int) []WireMessage {
	out := make([]WireMessage, n)
	for i := range out {
		sender := WireSenderUser
		if i%2 == 1 {
			sender = WireSenderAssistant
		}
		out[i] = WireMessage{Sender: sender, Text: "  hello  "}
	}
	return out
}

func TestValidateAcceptsBoundedBatches(t *testing.T) {
	for _, n := range []int{1, 2, 25, MaxMessages} {
		got, err := Validate(batch(n))
		require.NoError(t, err, "batch of %d", n)
		require.Len(t, got, n)
		for _, m := range got {
			assert.Equal(t, "hello", m.Text)
		}
	}
}

func TestValidateRejectsBatchLength(t *testing.T) {
	_, err := Validate(nil)
	require.Error(t, err)
	assert.Equal(t, "Messages array cannot be empty", err.Error())

	_, err = Validate(batch(MaxMessages + 1))
	require.Error(t, err)
	assert.Equal(t, "Too many messages. Maximum 50 messages allowed per request", err.Error())

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, -1, verr.Index)
}

func TestValidateNamesOffendingIndex(t *testing.T) {
	cases := []struct {
		name    string
		msg     WireMessage
		message string
	}{
		{"empty", WireMessage{Sender: "user", Text: "   \t\n"}, "Message at index 2 has empty text"},
		{"sender", WireMessage{Sender: "system", Text: "hi"}, "Message at index 2 has invalid sender. Must be either 'user' or 'assistant'"},
		{"long", WireMessage{Sender: "user", Text: strings.Repeat("a", MaxTextLength+1)}, "Message at index 2 is too long. Maximum 1000 characters allowed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msgs := batch(2)
			msgs = append(msgs, tc.msg)

			_, err := Validate(msgs)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, 2, verr.Index)
			assert.Equal(t, tc.message, verr.Message)
		})
	}
}

func TestValidateCountsCodePointsAfterTrim(t *testing.T) {
	text := "  " + strings.Repeat("é", MaxTextLength) + "  "
	got, err := Validate([]WireMessage{{Sender: "user", Text: text}})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", MaxTextLength), got[0].Text)
}

func TestValidateTreatsBotAsAssistant(t *testing.T) {
	got, err := Validate([]WireMessage{{Sender: "bot", Text: "hey"}})
	require.NoError(t, err)
	assert.Equal(t, WireSenderAssistant, got[0].Sender)
}

func TestValidateDoesNotMutateInput(t *testing.T) {
	in := []WireMessage{{Sender: "user", Text: "  Hi  "}}
	_, err := Validate(in)
	require.NoError(t, err)
	assert.Equal(t, "  Hi  ", in[0].Text)
}

func TestDecodeAndValidateShapeErrors(t *testing.T) {
	cases := map[string]string{
		`not json`:                                    "Messages must be an array",
		`{}`:                                          "Messages must be an array",
		`{"messages":"hi"}`:                           "Messages must be an array",
		`{"messages":[]}`:                             "Messages array cannot be empty",
		`{"messages":[42]}`:                           "Message at index 0 must be an object",
		`{"messages":[{"sender":1,"text":"x"}]}`:      "Message at index 0 has invalid sender. Must be either 'user' or 'assistant'",
		`{"messages":[{"sender":"user"}]}`:            "Message at index 0 must have a text property of type string",
		`{"messages":[{"sender":"user","text":5}]}`:   "Message at index 0 must have a text property of type string",
		`{"messages":[{"sender":"user","text":"  "}]}`: "Message at index 0 has empty text",
	}

	for body, want := range cases {
		t.Run(body, func(t *testing.T) {
			_, err := DecodeAndValidate([]byte(body))
			require.Error(t, err)
			assert.Equal(t, want, err.Error())
		})
	}
}

func TestDecodeAndValidateRoundTrip(t *testing.T) {
	body, err := json.Marshal(ChatRequest{Messages: []WireMessage{{Sender: "user", Text: "Hi"}}})
	require.NoError(t, err)

	got, err := DecodeAndValidate(body)
	require.NoError(t, err)
	require.Equal(t, []WireMessage{{Sender: "user", Text: "Hi"}}, got)
}

func TestToWireAndTail(t *testing.T) {
	history := []Message{
		{ID: 1, Text: "a", Sender: SenderBot},
		{ID: 2, Text: "b", Sender: SenderUser},
		{ID: 3, Text: "c", Sender: SenderBot},
	}

	tail := Tail(history, 2)
	require.Len(t, tail, 2)
	assert.Equal(t, int64(2), tail[0].ID)

	wire := ToWire(tail)
	assert.Equal(t, []WireMessage{{Sender: "user", Text: "b"}, {Sender: "assistant", Text: "c"}}, wire)

	assert.Len(t, Tail(history, 10), 3)
	assert.Equal(t, "user", Role("user"))
	assert.Equal(t, "assistant", Role("assistant"))
}
