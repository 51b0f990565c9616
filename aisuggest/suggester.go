package aisuggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

type SampleValue struct {
	RowNumber int    `json:"rowNumber"`
	Value     string `json:"value"`
}

// Request describes the column sample sent for review.
type Request struct {
	Column     string
	ColumnType string
	Subtype    string
	Sample     []SampleValue
}

// Completion is the raw model reply plus the tokens it cost.
type Completion struct {
	Text       string
	TokensUsed int
}

// Suggester asks a language model for data-quality issues the rules missed.
type Suggester interface {
	Suggest(ctx context.Context, req Request) (Completion, error)
}

type Config struct {
	Provider string
	APIKey   string
	Model    string
	Timeout  time.Duration
	// BaseURL overrides the Anthropic endpoint, mainly for tests.
	BaseURL string
}

// New returns the configured backend, or nil when no API key is set.
func New(cfg Config) (Suggester, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderAnthropic:
		return NewAnthropic(cfg), nil
	case ProviderGemini:
		g, err := NewGemini(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
}

const systemPrompt = `You review one column of a CMDB spreadsheet for data-quality problems.
Report typos, inconsistent naming, impossible values and values that do not belong in the column.
Ignore empty cells and problems that are only about capitalization or whitespace.
Reply with a single JSON object and nothing else:
{"issues":[{"rowNumber":2,"currentValue":"...","suggestedFix":"...","reason":"..."}]}
Use "MANUAL_CHECK_REQUIRED" as suggestedFix when you cannot propose a value.
Return {"issues":[]} when the column looks clean.`

// BuildPrompt renders the user message for req.
func BuildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Column: %s\nType: %s\n", req.Column, req.ColumnType)
	if req.Subtype != "" {
		fmt.Fprintf(&b, "Expected format: %s\n", req.Subtype)
	}
	sample, _ := json.Marshal(req.Sample)
	fmt.Fprintf(&b, "Rows (rowNumber is the spreadsheet row):\n%s\n", sample)
	return b.String()
}
