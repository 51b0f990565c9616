package aisuggest

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmdatafocus/cmdb_cleanser/config"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Gemini asks Google's Gemini API, requesting a JSON response body.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Suggest(ctx context.Context, req Request) (Completion, error) {
	result, err := g.client.Models.GenerateContent(ctx,
		g.model,
		genai.Text(BuildPrompt(req)),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			Temperature:       genai.Ptr[float32](0.1),
		},
	)
	if err != nil {
		return Completion{}, fmt.Errorf("genai generate failed: %w", err)
	}
	text := result.Text()
	if text == "" {
		return Completion{}, errors.New("no completion returned")
	}
	tokens := 0
	if result.UsageMetadata != nil {
		tokens = int(result.UsageMetadata.TotalTokenCount)
	}
	config.GetLogger().WithFields(logrus.Fields{
		"provider": ProviderGemini,
		"column":   req.Column,
		"tokens":   tokens,
	}).Info("ai suggestion completed")
	return Completion{Text: text, TokensUsed: tokens}, nil
}
