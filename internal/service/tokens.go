package service

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter measures prompt text against the curator context budget.
type TokenCounter interface {
	CountTokens(text string) int
}

// TiktokenCounter counts tokens with the cl100k_base encoding.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

func NewTiktokenCounter() (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}
	return &TiktokenCounter{encoding: enc}, nil
}

func (t *TiktokenCounter) CountTokens(text string) int {
	if t.encoding == nil {
		return ApproxTokenCounter{}.CountTokens(text)
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// ApproxTokenCounter estimates four characters per token. Used when the
// tiktoken encoding cannot be loaded.
type ApproxTokenCounter struct{}

func (ApproxTokenCounter) CountTokens(text string) int {
	n := len([]rune(text))
	return (n + 3) / 4
}
