package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gl "google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

const DefaultModel = "gemini-2.5-flash"

var (
	ErrEmptyText     = errors.New("nothing to parse")
	ErrEmptyResponse = errors.New("model returned no content")
	ErrUnusable      = errors.New("model output is not a usable expense")
)

// GeminiParser asks a Gemini model for a JSON expense object. Successful
// results are cached per text and category list.
type GeminiParser struct {
	svc    *gl.Service
	model  string
	cache  cache.Cache[Suggestion]
	logger *log.Logger
}

type GeminiOption func(*GeminiParser)

func WithModel(model string) GeminiOption {
	return func(p *GeminiParser) {
		if model != "" {
			p.model = model
		}
	}
}

// WithCache replaces the default result cache; nil disables caching.
func WithCache(c cache.Cache[Suggestion]) GeminiOption {
	return func(p *GeminiParser) { p.cache = c }
}

func WithLogger(l *log.Logger) GeminiOption {
	return func(p *GeminiParser) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewGeminiParser builds a parser over the Generative Language API. Pass
// option.WithAPIKey in production; tests pass an endpoint and client.
func NewGeminiParser(ctx context.Context, clientOpts []option.ClientOption, opts ...GeminiOption) (*GeminiParser, error) {
	svc, err := gl.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create generative language client: %w", err)
	}
	p := &GeminiParser{
		svc:    svc,
		model:  DefaultModel,
		cache:  cache.NewLRUCache[Suggestion](256, time.Hour),
		logger: log.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	p.logger = p.logger.WithComponent(log.ComponentEnrich)
	return p, nil
}

func (p *GeminiParser) Parse(ctx context.Context, text string, categoryNames []string) (Suggestion, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Suggestion{}, &core.EnrichmentError{Err: ErrEmptyText}
	}
	key := cacheKey(text, categoryNames)
	if p.cache != nil {
		if s, ok := p.cache.Get(key); ok {
			return s, nil
		}
	}

	start := time.Now()
	s, err := p.generate(ctx, text, categoryNames)
	logger := p.logger.With(log.FieldOperation, log.OpParse, log.FieldModel, p.model,
		log.FieldDuration, time.Since(start).Milliseconds())
	if err != nil {
		logger.WarnContext(ctx, "Message parsing failed", log.FieldError, err)
		return Suggestion{}, &core.EnrichmentError{Err: err}
	}
	logger.DebugContext(ctx, "Message parsed")
	if p.cache != nil {
		p.cache.Set(key, s)
	}
	return s, nil
}

func (p *GeminiParser) generate(ctx context.Context, text string, categoryNames []string) (Suggestion, error) {
	req := &gl.GenerateContentRequest{
		Contents: []*gl.Content{{
			Role:  "user",
			Parts: []*gl.Part{{Text: prompt(text, categoryNames)}},
		}},
		GenerationConfig: &gl.GenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema: &gl.Schema{
				Type: "OBJECT",
				Properties: map[string]gl.Schema{
					"description":  {Type: "STRING"},
					"amount":       {Type: "NUMBER"},
					"categoryName": {Type: "STRING"},
				},
				Required: []string{"description", "amount", "categoryName"},
			},
		},
	}
	resp, err := p.svc.Models.GenerateContent("models/"+p.model, req).Context(ctx).Do()
	if err != nil {
		return Suggestion{}, fmt.Errorf("generate content: %w", err)
	}
	out, ok := firstText(resp)
	if !ok {
		return Suggestion{}, ErrEmptyResponse
	}
	return decodeSuggestion(out)
}

func prompt(text string, categoryNames []string) string {
	return fmt.Sprintf("Parse the following transaction message and extract the expense details. "+
		"Message: %q. Respond with a JSON object with keys \"description\" (string), \"amount\" (number) "+
		"and \"categoryName\" (string). categoryName must be one of [%s]; if none fits use %q.",
		text, strings.Join(categoryNames, ", "), core.FallbackCategoryName)
}

func firstText(resp *gl.GenerateContentResponse) (string, bool) {
	if resp == nil {
		return "", false
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if part != nil && strings.TrimSpace(part.Text) != "" {
				return part.Text, true
			}
		}
	}
	return "", false
}

func decodeSuggestion(raw string) (Suggestion, error) {
	var out struct {
		Description  string      `json:"description"`
		Amount       json.Number `json:"amount"`
		CategoryName string      `json:"categoryName"`
	}
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "```"), "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); err != nil {
		return Suggestion{}, fmt.Errorf("%w: %v", ErrUnusable, err)
	}
	amount, err := core.ParseMoney(out.Amount.String())
	if err != nil {
		return Suggestion{}, fmt.Errorf("%w: amount %q: %w", ErrUnusable, out.Amount, err)
	}
	return Suggestion{
		Description:  strings.TrimSpace(out.Description),
		Amount:       amount,
		CategoryName: strings.TrimSpace(out.CategoryName),
	}, nil
}

// cacheKey keys on the text as written; case can change the parsed
// description.
func cacheKey(text string, categoryNames []string) string {
	return text + "\x00" + strings.Join(categoryNames, "\x1f")
}
