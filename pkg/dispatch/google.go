package dispatch

import (
	"google.golang.org/genai"

	"github.com/zen-systems/routegate/pkg/catalog"
)

// GoogleRequest holds the arguments to genai's Models.GenerateContent.
type GoogleRequest struct {
	Model    string                       `json:"model"`
	Contents []*genai.Content             `json:"contents"`
	Config   *genai.GenerateContentConfig `json:"config,omitempty"`
}

// GoogleParams builds a Gemini request for spec.
func GoogleParams(spec *catalog.CallSpec, prompt string) *GoogleRequest {
	t := spec.Tunables
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens(t)),
	}
	if t.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*t.Temperature))
	}
	if v, ok := extraFloat(t.Extra, ExtraTopP); ok {
		cfg.TopP = genai.Ptr(float32(v))
	}
	if v, ok := extraFloat(t.Extra, ExtraTopK); ok {
		cfg.TopK = genai.Ptr(float32(v))
	}
	if v, ok := extraInt(t.Extra, ExtraSeed); ok {
		cfg.Seed = genai.Ptr(int32(v))
	}
	if s, ok := extraString(t.Extra, ExtraSystem); ok {
		cfg.SystemInstruction = genai.NewContentFromText(s, genai.RoleUser)
	}
	if stop := extraStrings(t.Extra, ExtraStop); len(stop) > 0 {
		cfg.StopSequences = stop
	}

	return &GoogleRequest{
		Model:    spec.ProviderModel,
		Contents: genai.Text(prompt),
		Config:   cfg,
	}
}
