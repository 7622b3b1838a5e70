package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

const DefaultVertexModel = "gemini-1.5-pro"

const systemPrompt = `You are a literary translator. Translate the text the user sends into the requested language.
Keep paragraph breaks. Reply with the translation only, without notes or quotation marks.`

// VertexConfig selects the Vertex AI project and model.
type VertexConfig struct {
	Project         string
	Region          string
	Model           string
	CredentialsFile string
}

// Vertex translates with a Gemini model on Vertex AI.
type Vertex struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
	logger *slog.Logger
}

// NewVertex creates a Vertex AI client. Close releases it.
func NewVertex(ctx context.Context, cfg VertexConfig, logger *slog.Logger) (*Vertex, error) {
	if cfg.Project == "" || cfg.Region == "" {
		return nil, fmt.Errorf("translate: vertex project and region cannot be empty")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultVertexModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := genai.NewClient(ctx, cfg.Project, cfg.Region, opts...)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.2),
	}

	return &Vertex{client: client, model: model, name: "vertex:" + cfg.Model, logger: logger}, nil
}

func (v *Vertex) Name() string { return v.name }

func (v *Vertex) Translate(ctx context.Context, text, from, to string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	if SameLanguage(from, to) {
		return text, nil
	}

	source := from
	if source == "" {
		source = "the detected language"
	}
	prompt := fmt.Sprintf("Translate from %s into %s:\n\n%s", source, to, text)
	resp, err := v.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	out, parts := responseText(resp)
	if parts > 1 {
		v.logger.Debug("gemini response had several text parts, concatenated", "parts", parts)
	}
	if looksLikeRefusal(out) {
		return "", fmt.Errorf("%w: %q", ErrRefused, out)
	}
	if out == "" {
		return "", fmt.Errorf("translate: empty response from %s", v.name)
	}
	return out, nil
}

// Close releases the underlying client.
func (v *Vertex) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, int) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", 0
	}
	var b strings.Builder
	n := 0
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
			n++
		}
	}
	return strings.TrimSpace(b.String()), n
}
