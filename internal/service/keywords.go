package service

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/florianreyes/shipba-rag/internal/openai"
	"go.uber.org/zap"
)

// minKeywordRunes is the shortest word the frequency fallback considers.
const minKeywordRunes = 4

// KeywordExtractor produces single-word tags for a profile.
type KeywordExtractor struct {
	llm    LLMClient
	count  int
	logger *zap.Logger
}

func NewKeywordExtractor(llm LLMClient, count int, logger *zap.Logger) *KeywordExtractor {
	if count <= 0 || count > domain.MaxKeywords {
		count = domain.MaxKeywords
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeywordExtractor{llm: llm, count: count, logger: logger}
}

// Extract returns at most count single-token keywords. When the model fails
// or yields nothing usable, keywords come from word frequency in content.
func (k *KeywordExtractor) Extract(ctx context.Context, content string, count int) []string {
	if count <= 0 {
		count = k.count
	}

	if k.llm != nil {
		text, err := k.llm.CompleteText(ctx, openai.ChatRequest{
			System: keywordSystemPrompt(count),
			User:   keywordUserPrompt(content, count),
		})
		if err == nil {
			if keywords := SanitizeKeywords(strings.Split(text, ","), count); len(keywords) > 0 {
				return keywords
			}
			k.logger.Warn("keyword extraction returned no usable keywords, using frequency fallback", zap.String("stage", "keywords"))
		} else {
			k.logger.Warn("keyword extraction failed, using frequency fallback", zap.String("stage", "keywords"), zap.Error(err))
		}
	}

	return FrequencyKeywords(content, count)
}

// SanitizeKeywords trims candidates, drops empty and multi-word entries and
// case-insensitive duplicates, and caps the result at count.
func SanitizeKeywords(candidates []string, count int) []string {
	keywords := make([]string, 0, count)
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if len(keywords) >= count {
			break
		}
		c = strings.Trim(strings.TrimSpace(c), `"'.;:`)
		if c == "" || strings.IndexFunc(c, unicode.IsSpace) >= 0 {
			continue
		}
		key := strings.ToLower(c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keywords = append(keywords, c)
	}
	return keywords
}

// FrequencyKeywords picks the count most frequent words longer than three
// runes. Ties keep first-occurrence order.
func FrequencyKeywords(content string, count int) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, content)

	type wordStat struct {
		word  string
		count int
		first int
	}
	stats := make(map[string]*wordStat)
	var order []*wordStat
	for i, w := range strings.Fields(cleaned) {
		if len([]rune(w)) < minKeywordRunes {
			continue
		}
		if s, ok := stats[w]; ok {
			s.count++
			continue
		}
		s := &wordStat{word: w, count: 1, first: i}
		stats[w] = s
		order = append(order, s)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})

	if len(order) > count {
		order = order[:count]
	}
	keywords := make([]string, len(order))
	for i, s := range order {
		keywords[i] = s.word
	}
	return keywords
}
