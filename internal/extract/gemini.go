package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	genai "google.golang.org/genai"
)

// DefaultModel — модель Gemini по умолчанию.
const DefaultModel = "gemini-2.5-flash"

// attempts — сколько раз пробуем вызвать модель.
const attempts = 3

// generator — часть *genai.Models, которая нам нужна.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini — тонкая обёртка над официальным клиентом genai.
type Gemini struct {
	gen     generator
	model   string
	log     *slog.Logger
	backoff time.Duration
}

// NewGemini создаёт клиента Gemini API.
func NewGemini(ctx context.Context, apiKey, model string, log *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = DefaultModel
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return newGemini(cli.Models, model, log), nil
}

func newGemini(gen generator, model string, log *slog.Logger) *Gemini {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Gemini{gen: gen, model: model, log: log, backoff: 300 * time.Millisecond}
}

func (g *Gemini) Name() string { return "Gemini:" + g.model }

// Extract отправляет изображение вместе с Prompt и возвращает очищенный текст дерева.
func (g *Gemini) Extract(ctx context.Context, image []byte, mimeType string) (string, error) {
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: Prompt},
			{InlineData: &genai.Blob{Data: image, MIMEType: mimeType}},
		},
	}}
	g.log.Debug("extract request", "model", g.model, "mime", mimeType, "bytes", len(image))

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(g.backoff * time.Duration(1<<(attempt-1))):
			}
		}
		resp, err := g.gen.GenerateContent(ctx, g.model, contents, nil)
		if err != nil {
			lastErr = err
			g.log.Warn("extract attempt failed", "attempt", attempt+1, "err", err)
			continue
		}
		txt := CleanResponse(responseText(resp))
		if strings.TrimSpace(txt) == "" {
			lastErr = ErrEmptyResponse
			continue
		}
		return txt, nil
	}
	return "", lastErr
}

// responseText склеивает текстовые части первого кандидата.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
