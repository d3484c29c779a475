package models

import "time"

// IntentRecord is one labelled intent: its tag, the example utterances it
// is trained on and the replies it may answer with.
type IntentRecord struct {
	Tag       string   `json:"tag" yaml:"tag"`
	Patterns  []string `json:"patterns" yaml:"patterns"`
	Responses []string `json:"responses" yaml:"responses"`
}

// Corpus is the ordered collection of intent records loaded at startup.
type Corpus []IntentRecord

// TrainingSet holds one (text, tag) pair per pattern occurrence.
type TrainingSet struct {
	Texts []string
	Tags  []string
}

// TrainingSet flattens the corpus. A tag with N patterns contributes N pairs.
func (c Corpus) TrainingSet() TrainingSet {
	var ts TrainingSet
	for _, intent := range c {
		for _, pattern := range intent.Patterns {
			ts.Texts = append(ts.Texts, pattern)
			ts.Tags = append(ts.Tags, intent.Tag)
		}
	}
	return ts
}

// Lookup returns the first record with the given tag.
func (c Corpus) Lookup(tag string) (*IntentRecord, bool) {
	for i := range c {
		if c[i].Tag == tag {
			return &c[i], true
		}
	}
	return nil, false
}

// Tags returns the distinct tags in corpus order.
func (c Corpus) Tags() []string {
	seen := make(map[string]struct{}, len(c))
	tags := make([]string, 0, len(c))
	for _, intent := range c {
		if _, ok := seen[intent.Tag]; ok {
			continue
		}
		seen[intent.Tag] = struct{}{}
		tags = append(tags, intent.Tag)
	}
	return tags
}

// DuplicateTags returns tags that appear on more than one record.
func (c Corpus) DuplicateTags() []string {
	counts := make(map[string]int, len(c))
	var dups []string
	for _, intent := range c {
		counts[intent.Tag]++
		if counts[intent.Tag] == 2 {
			dups = append(dups, intent.Tag)
		}
	}
	return dups
}

// Source identifies the shell a conversation turn came from.
type Source string

const (
	SourceWeb      Source = "web"
	SourceTelegram Source = "telegram"
	SourceConsole  Source = "console"
)

// ConversationEntry is one logged turn of a conversation.
type ConversationEntry struct {
	ID        string    `json:"id"`
	Input     string    `json:"input"`
	Response  string    `json:"response"`
	Tag       string    `json:"tag,omitempty"`
	Source    Source    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Reply is the result of a single classify-and-respond turn.
type Reply struct {
	Input    string `json:"input"`
	Response string `json:"response"`
	Tag      string `json:"tag"`
	Ended    bool   `json:"ended"`
	Fallback bool   `json:"fallback,omitempty"`
}
