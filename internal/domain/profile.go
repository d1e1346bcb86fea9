package domain

import (
	"fmt"
	"strings"
	"time"
)

// SocialHandles are optional contact handles shown next to a match.
type SocialHandles struct {
	X         string `json:"x,omitempty"`
	Telegram  string `json:"telegram,omitempty"`
	Instagram string `json:"instagram,omitempty"`
}

// IsEmpty reports whether no handle is set.
func (s SocialHandles) IsEmpty() bool {
	return s.X == "" && s.Telegram == "" && s.Instagram == ""
}

// Normalize trims every handle.
func (s SocialHandles) Normalize() SocialHandles {
	return SocialHandles{
		X:         strings.TrimSpace(s.X),
		Telegram:  strings.TrimSpace(s.Telegram),
		Instagram: strings.TrimSpace(s.Instagram),
	}
}

// ProfileAnswer is one answered form field. Answers are kept in form order.
type ProfileAnswer struct {
	Key      string `json:"key"`
	Question string `json:"question,omitempty"`
	Value    string `json:"value"`
}

// Profile is a community member. Content is the free text that gets
// chunked, embedded and handed to the curator.
type Profile struct {
	ID        string
	Name      string
	Mail      string
	Content   string
	Answers   []ProfileAnswer
	Social    SocialHandles
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProfile creates a new Profile instance
func NewProfile(id, name, mail string, createdAt time.Time) *Profile {
	return &Profile{
		ID:        id,
		Name:      name,
		Mail:      NormalizeMail(mail),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// DisplayName returns the name used in prompts and results.
func (p *Profile) DisplayName() string {
	if strings.TrimSpace(p.Name) == "" {
		return "Unknown"
	}
	return p.Name
}

// HasContent reports whether the profile has anything to search over.
func (p *Profile) HasContent() bool {
	return strings.TrimSpace(p.Content) != ""
}

// NormalizeMail lowercases and trims an email address.
func NormalizeMail(mail string) string {
	return strings.ToLower(strings.TrimSpace(mail))
}

// ValidateProfile validates a Profile instance
func ValidateProfile(p *Profile) error {
	if p == nil {
		return fmt.Errorf("profile cannot be nil")
	}

	if p.ID == "" {
		return fmt.Errorf("profile ID is required")
	}

	if p.Mail == "" {
		return fmt.Errorf("profile Mail is required")
	}

	if !strings.Contains(p.Mail, "@") {
		return fmt.Errorf("profile Mail is invalid")
	}

	return nil
}
