package dispatch

import (
	"github.com/openai/openai-go"

	"github.com/zen-systems/routegate/pkg/catalog"
)

// OpenAIParams builds a Chat Completions request for spec. DeepSeek speaks
// the same protocol and uses this shape too.
func OpenAIParams(spec *catalog.CallSpec, prompt string) openai.ChatCompletionNewParams {
	t := spec.Tunables

	var messages []openai.ChatCompletionMessageParamUnion
	if s, ok := extraString(t.Extra, ExtraSystem); ok {
		messages = append(messages, openai.SystemMessage(s))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(spec.ProviderModel),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(maxTokens(t)),
	}
	if t.Temperature != nil {
		params.Temperature = openai.Float(*t.Temperature)
	}
	if v, ok := extraFloat(t.Extra, ExtraTopP); ok {
		params.TopP = openai.Float(v)
	}
	if v, ok := extraInt(t.Extra, ExtraSeed); ok {
		params.Seed = openai.Int(v)
	}
	if stop := extraStrings(t.Extra, ExtraStop); len(stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: stop}
	}
	return params
}
