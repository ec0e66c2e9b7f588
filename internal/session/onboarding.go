package session

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// State is a step of the scripted onboarding that precedes free chat.
type State string

const (
	StateAwaitingName            State = "awaiting-name"
	StateAwaitingNicknameConsent State = "awaiting-nickname-consent"
	StateAwaitingNickname        State = "awaiting-nickname"
	StateFreeChat                State = "free-chat"
)

// Scripted onboarding lines.
const (
	NicknamePrompt       = "Cool, you can give me a name too. Want to pick a nickname for me?"
	AskNameAgain         = "I didn't quite catch your name. What should I call you?"
	AskNickname          = "Awesome! What should I be called?"
	AskNicknameAgain     = "Hmm, I didn't catch that. What name would you like to give me?"
	DefaultBotName       = "BFF"
	greetingTemplate     = "Nice to meet you, %s! " + NicknamePrompt
	nicknameSetTemplate  = "%s it is, I love it! So %s, what's on your mind today?"
	nicknameSkipTemplate = "No worries, " + DefaultBotName + " works just fine. So %s, what's on your mind today?"
)

var (
	negativeKeywords    = map[string]bool{"no": true, "not": true, "nope": true, "nah": true}
	affirmativeKeywords = map[string]bool{"yes": true, "sure": true, "okay": true, "ok": true, "yeah": true, "yep": true}
)

// namePatterns are tried in order; the first capture that is not a stopword wins.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy name is\s+([\p{L}][\p{L}'-]*)`),
	regexp.MustCompile(`(?i)\bmy name's\s+([\p{L}][\p{L}'-]*)`),
	regexp.MustCompile(`(?i)\bname's\s+([\p{L}][\p{L}'-]*)`),
	regexp.MustCompile(`(?i)\bi'm\s+([\p{L}][\p{L}'-]*)`),
	regexp.MustCompile(`(?i)\bi am\s+([\p{L}][\p{L}'-]*)`),
	regexp.MustCompile(`(?i)\bim\s+([\p{L}][\p{L}'-]*)`),
	regexp.MustCompile(`(?i)\bcall me\s+([\p{L}][\p{L}'-]*)`),
	regexp.MustCompile(`(?i)\bit's\s+([\p{L}][\p{L}'-]*)`),
	regexp.MustCompile(`(?i)\bthis is\s+([\p{L}][\p{L}'-]*)`),
	regexp.MustCompile(`(?i)\bthey call me\s+([\p{L}][\p{L}'-]*)`),
}

var stopwords = map[string]bool{
	"a": true, "am": true, "an": true, "and": true, "be": true, "call": true, "called": true,
	"can": true, "fine": true, "good": true, "hello": true, "hey": true, "hi": true, "hmm": true,
	"i": true, "i'm": true, "im": true, "is": true, "it": true, "it's": true, "its": true,
	"just": true, "me": true, "my": true, "nah": true, "name": true, "name's": true, "no": true,
	"nope": true, "not": true, "oh": true, "ok": true, "okay": true, "please": true, "so": true,
	"sure": true, "thanks": true, "the": true, "there": true, "they": true, "this": true,
	"uh": true, "um": true, "well": true, "what": true, "yeah": true, "yep": true, "yes": true,
	"yo": true, "you": true, "your": true,
}

// ExtractName pulls a name out of a free-form introduction. It returns "" when
// every word is a stopword. The result is capitalized: "my name is sam" -> "Sam".
func ExtractName(text string) string {
	for _, pattern := range namePatterns {
		match := pattern.FindStringSubmatch(text)
		if len(match) < 2 {
			continue
		}
		if candidate := cleanWord(match[1]); candidate != "" && !stopwords[strings.ToLower(candidate)] {
			return capitalize(candidate)
		}
	}

	for _, word := range strings.Fields(text) {
		candidate := cleanWord(word)
		if candidate == "" || stopwords[strings.ToLower(candidate)] {
			continue
		}
		return capitalize(candidate)
	}
	return ""
}

// cleanWord strips surrounding punctuation, keeping inner apostrophes and hyphens.
func cleanWord(word string) string {
	return strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) })
}

func capitalize(word string) string {
	runes := []rune(strings.ToLower(word))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// keywords returns the lowercase words of text with punctuation removed.
func keywords(text string) map[string]bool {
	out := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if w := cleanWord(word); w != "" {
			out[w] = true
		}
	}
	return out
}

func hasAny(words map[string]bool, set map[string]bool) bool {
	for w := range words {
		if set[w] {
			return true
		}
	}
	return false
}

// onboarding tracks the scripted introduction. Negative keywords win over affirmative
// ones so "not sure" skips the nickname.
type onboarding struct {
	state    State
	userName string
	botName  string
}

func newOnboarding() *onboarding {
	return &onboarding{state: StateAwaitingName, botName: DefaultBotName}
}

// step consumes one user turn. It returns the scripted reply, or handled=false once
// the conversation belongs to the proxy.
func (o *onboarding) step(text string) (reply string, handled bool) {
	switch o.state {
	case StateAwaitingName:
		name := ExtractName(text)
		if name == "" {
			return AskNameAgain, true
		}
		o.userName = name
		o.state = StateAwaitingNicknameConsent
		return fmt.Sprintf(greetingTemplate, name), true

	case StateAwaitingNicknameConsent:
		words := keywords(text)
		switch {
		case hasAny(words, negativeKeywords):
			o.state = StateFreeChat
			return fmt.Sprintf(nicknameSkipTemplate, o.userName), true
		case hasAny(words, affirmativeKeywords):
			o.state = StateAwaitingNickname
			return AskNickname, true
		}
		nickname := ExtractName(text)
		if nickname == "" {
			return NicknamePrompt, true
		}
		return o.setNickname(nickname), true

	case StateAwaitingNickname:
		nickname := ExtractName(text)
		if nickname == "" {
			return AskNicknameAgain, true
		}
		return o.setNickname(nickname), true

	default:
		return "", false
	}
}

func (o *onboarding) setNickname(nickname string) string {
	o.botName = nickname
	o.state = StateFreeChat
	return fmt.Sprintf(nicknameSetTemplate, nickname, o.userName)
}
