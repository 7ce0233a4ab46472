package retrieve

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/factlens/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed corpus.yaml
var defaultCorpus []byte

// Classifier derives a credibility tier from a source URL
type Classifier interface {
	Classify(rawURL string) model.Credibility
}

// Corpus is the read-only evidence index. It is built once and never mutated,
// so it is safe for concurrent use.
type Corpus struct {
	items []model.EvidenceItem
}

// corpusEntry is the on-disk shape; enum fields are validated after decoding
type corpusEntry struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Source      string   `yaml:"source"`
	URL         string   `yaml:"url"`
	PublishTime string   `yaml:"publish_time"`
	Credibility string   `yaml:"credibility"`
	Stance      string   `yaml:"stance"`
	Topics      []string `yaml:"topics"`
	Keywords    []string `yaml:"keywords"`
	Quote       string   `yaml:"quote"`
}

// Load reads the corpus at path, or the built-in corpus when path is empty
func Load(path string, classifier Classifier) (*Corpus, error) {
	if path == "" {
		return Parse(defaultCorpus, classifier)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	corpus, err := Parse(data, classifier)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", path, err)
	}
	return corpus, nil
}

// Default returns the built-in corpus
func Default() *Corpus {
	corpus, err := Parse(defaultCorpus, nil)
	if err != nil {
		panic(fmt.Sprintf("embedded corpus is invalid: %v", err))
	}
	return corpus
}

// Parse decodes and validates a YAML corpus. Items without a valid credibility
// are classified from their URL; a nil classifier rates them B.
func Parse(data []byte, classifier Classifier) (*Corpus, error) {
	var entries []corpusEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("corpus is empty")
	}

	seen := make(map[string]bool, len(entries))
	items := make([]model.EvidenceItem, 0, len(entries))

	for i, entry := range entries {
		item, err := entry.toItem(classifier)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		if seen[item.ID] {
			return nil, fmt.Errorf("item %d: duplicate id %q", i+1, item.ID)
		}
		seen[item.ID] = true
		items = append(items, item)
	}

	return &Corpus{items: items}, nil
}

func (e corpusEntry) toItem(classifier Classifier) (model.EvidenceItem, error) {
	item := model.EvidenceItem{
		ID:          strings.TrimSpace(e.ID),
		Title:       strings.TrimSpace(e.Title),
		Source:      strings.TrimSpace(e.Source),
		URL:         strings.TrimSpace(e.URL),
		PublishTime: strings.TrimSpace(e.PublishTime),
		Quote:       strings.TrimSpace(e.Quote),
	}
	if item.ID == "" {
		return item, fmt.Errorf("missing id")
	}
	if item.Title == "" {
		return item, fmt.Errorf("%s: missing title", item.ID)
	}

	for _, raw := range e.Topics {
		if topic, ok := model.ParseTopic(strings.TrimSpace(raw)); ok {
			item.Topics = append(item.Topics, topic)
		}
	}
	for _, keyword := range e.Keywords {
		if keyword = strings.TrimSpace(keyword); keyword != "" {
			item.Keywords = append(item.Keywords, keyword)
		}
	}
	if len(item.Topics) == 0 && len(item.Keywords) == 0 {
		return item, fmt.Errorf("%s: needs at least one topic or keyword", item.ID)
	}

	stance, ok := model.ParseStance(strings.ToLower(strings.TrimSpace(e.Stance)))
	if !ok {
		stance = model.StanceUnrelated
	}
	item.Stance = stance

	credibility, ok := model.ParseCredibility(strings.ToUpper(strings.TrimSpace(e.Credibility)))
	if !ok {
		credibility = model.CredibilityB
		if classifier != nil {
			credibility = classifier.Classify(item.URL)
		}
	}
	item.Credibility = credibility

	return item, nil
}

// Items returns the corpus entries in corpus order
func (c *Corpus) Items() []model.EvidenceItem {
	out := make([]model.EvidenceItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of entries
func (c *Corpus) Len() int {
	return len(c.items)
}
