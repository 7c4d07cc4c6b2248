package catalog

// Credential references used by the built-in catalog. Each names the
// environment variable holding the provider key.
const (
	CredentialAnthropic = "ANTHROPIC_API_KEY"
	CredentialOpenAI    = "OPENAI_API_KEY"
	CredentialGoogle    = "GOOGLE_API_KEY"
	CredentialDeepSeek  = "DEEPSEEK_API_KEY"
)

func temperature(v float64) *float64 { return &v }

// DefaultEntries returns the built-in catalog entries.
func DefaultEntries() map[Category]Entry {
	return map[Category]Entry{
		CategoryFastOperations: {
			Provider:    "openai",
			Model:       "gpt-5.2-instant",
			Credentials: []string{CredentialOpenAI},
			Tunables:    Tunables{MaxTokens: 1024, Temperature: temperature(0.2), ContextWindow: 128000},
		},
		CategoryAdvancedContext: {
			Provider:    "google",
			Model:       "gemini-2.0-pro",
			Credentials: []string{CredentialGoogle},
			Tunables:    Tunables{MaxTokens: 8192, Temperature: temperature(0.3), ContextWindow: 2000000},
		},
		CategorySpecialized: {
			Tunables: Tunables{MaxTokens: 4096},
			Subkeys: map[string]Template{
				SubkeyMaverick: {
					Provider:    "anthropic",
					Model:       "claude-opus-4-20250514",
					Credentials: []string{CredentialAnthropic},
					Tunables:    Tunables{Temperature: temperature(0.9), ContextWindow: 200000},
				},
				SubkeyScout: {
					Provider:    "google",
					Model:       "gemini-2.0-flash",
					Credentials: []string{CredentialGoogle},
					Tunables:    Tunables{Temperature: temperature(0.4), ContextWindow: 1000000},
				},
			},
		},
		CategoryCoding: {
			Provider:    "anthropic",
			Model:       "claude-sonnet-4-20250514",
			Credentials: []string{CredentialAnthropic},
			Tunables:    Tunables{MaxTokens: 8192, Temperature: temperature(0.1), ContextWindow: 200000},
			Fallbacks: []Template{
				{Provider: "openai", Model: "gpt-5.2-codex", Credentials: []string{CredentialOpenAI}},
			},
		},
		CategoryReasoning: {
			Provider:    "anthropic",
			Model:       "claude-opus-4-20250514",
			Credentials: []string{CredentialAnthropic},
			Tunables:    Tunables{MaxTokens: 8192, Temperature: temperature(0.2), ContextWindow: 200000},
			Fallbacks: []Template{
				{Provider: "openai", Model: "gpt-5.2-pro", Credentials: []string{CredentialOpenAI}},
				{Provider: "deepseek", Model: "deepseek-reasoner", Credentials: []string{CredentialDeepSeek}},
			},
		},
		CategoryGeneral: {
			Provider:    "anthropic",
			Model:       "claude-sonnet-4-20250514",
			Credentials: []string{CredentialAnthropic},
			Tunables:    Tunables{MaxTokens: 4096, Temperature: temperature(0.7), ContextWindow: 200000},
			Fallbacks: []Template{
				{Provider: "openai", Model: "gpt-5.2-thinking", Credentials: []string{CredentialOpenAI}},
			},
		},
	}
}

// Default returns the built-in catalog backed by resolver.
func Default(resolver Resolver) *Catalog {
	return New(DefaultEntries(), resolver)
}
