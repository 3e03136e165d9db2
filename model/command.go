package model

import "time"

// Command is one catalog entry. Template holds [Name] placeholders that are
// filled in, in Params order, before the command is sent.
type Command struct {
	Template    string              `json:"template" yaml:"template"`
	Label       string              `json:"label" yaml:"label"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Params      []string            `json:"params,omitempty" yaml:"params,omitempty"`
	Options     map[string][]string `json:"options,omitempty" yaml:"options,omitempty"`
	IsStarred   bool                `json:"isStarred,omitempty" yaml:"isStarred,omitempty"`
}

// DisplayLabel is the label with a star prefix for favorites.
func (c Command) DisplayLabel() string {
	if c.IsStarred {
		return "★ " + c.Label
	}
	return c.Label
}

// Choices returns the closed option list for a param, or nil for free text.
func (c Command) Choices(param string) []string {
	opts := c.Options[param]
	if len(opts) == 0 {
		return nil
	}
	return opts
}

// Catalog maps category -> group -> commands.
type Catalog map[string]map[string][]Command

// Usage is what the store remembers about a template after it was sent.
type Usage struct {
	Template   string
	LastUsedAt *time.Time
	LastParams map[string]string
	LastSent   string
}
