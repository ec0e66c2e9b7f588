package output

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bffagent/bffagent/internal/store"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

func (f *JSONFormatter) FormatRateLimits(entries []store.RateLimitEntry) (string, error) {
	return f.marshal(nonNil(entries))
}

func (f *JSONFormatter) FormatConversations(convs []store.Conversation) (string, error) {
	return f.marshal(nonNil(convs))
}

func (f *JSONFormatter) FormatTranscript(t *Transcript) (string, error) {
	return f.marshal(t)
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// YAMLFormatter renders results as YAML documents.
type YAMLFormatter struct{}

func (f *YAMLFormatter) FormatRateLimits(entries []store.RateLimitEntry) (string, error) {
	return marshalYAML(nonNil(entries))
}

func (f *YAMLFormatter) FormatConversations(convs []store.Conversation) (string, error) {
	return marshalYAML(nonNil(convs))
}

func (f *YAMLFormatter) FormatTranscript(t *Transcript) (string, error) {
	return marshalYAML(t)
}

func marshalYAML(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// nonNil keeps empty results rendering as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
