// Package narrative turns a forecast result into a short plain-language
// air-quality summary using the OpenAI API. The generator is optional; the
// server runs without one when no API key is configured.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/atmoscast/atmoscast/internal/forecast"
)

type Generator struct {
	client openai.Client
	model  openai.ChatModel
}

// NewGenerator reads OPENAI_API_KEY for authentication.
func NewGenerator() (*Generator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Generator{
		client: client,
		model:  openai.ChatModelGPT4oMini,
	}, nil
}

const systemPrompt = "You are an air quality forecaster. Write a two-sentence public summary of the NO2 outlook. Plain language, no numbers beyond whole hours, mention the trend direction and any rain or fire influence."

// Summarize renders res into a short narrative.
func (g *Generator) Summarize(ctx context.Context, res *forecast.Result) (string, error) {
	if res == nil || len(res.Horizons) == 0 {
		return "", errors.New("no forecast horizons to summarize")
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(describe(res)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("narrative generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("narrative generation returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// describe flattens the result into the prompt payload.
func describe(res *forecast.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Column trend per hour: %.3g. Wind stability: %.2f. Fire growth rate: %.3g.\n",
		res.Trends.NO2Trend, res.Trends.WindStability, res.Trends.FireGrowthRate)
	for _, h := range res.Horizons {
		fmt.Fprintf(&b, "In %d hours: mean surface %.3g, confidence %.2f.\n",
			h.HoursAhead, h.Grid.MeanSurface(), h.Confidence)
	}
	return b.String()
}
