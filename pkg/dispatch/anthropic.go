package dispatch

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/zen-systems/routegate/pkg/catalog"
)

// AnthropicParams builds a Messages API request for spec.
func AnthropicParams(spec *catalog.CallSpec, prompt string) anthropic.MessageNewParams {
	t := spec.Tunables
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(spec.ProviderModel),
		MaxTokens: maxTokens(t),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if t.Temperature != nil {
		params.Temperature = anthropic.Float(*t.Temperature)
	}
	if v, ok := extraFloat(t.Extra, ExtraTopP); ok {
		params.TopP = anthropic.Float(v)
	}
	if v, ok := extraInt(t.Extra, ExtraTopK); ok {
		params.TopK = anthropic.Int(v)
	}
	if s, ok := extraString(t.Extra, ExtraSystem); ok {
		params.System = []anthropic.TextBlockParam{{Text: s}}
	}
	if stop := extraStrings(t.Extra, ExtraStop); len(stop) > 0 {
		params.StopSequences = stop
	}
	return params
}
