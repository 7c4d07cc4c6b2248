package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrimary(t *testing.T) {
	c := Default(nil)

	spec, err := c.Build(CategoryCoding, "")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", spec.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", spec.ProviderModel)
	assert.Equal(t, []string{CredentialAnthropic}, spec.CredentialRefs)
	assert.Equal(t, 8192, spec.Tunables.MaxTokens)
	assert.Empty(t, spec.SelectedCredential)
	assert.Empty(t, spec.Decision)
}

func TestBuildSpecializedSubkeys(t *testing.T) {
	c := Default(nil)

	maverick, err := c.Build(CategorySpecialized, SubkeyMaverick)
	require.NoError(t, err)
	assert.Equal(t, "claude-opus-4-20250514", maverick.ProviderModel)
	assert.Equal(t, 4096, maverick.Tunables.MaxTokens, "inherits entry tunables")
	require.NotNil(t, maverick.Tunables.Temperature)
	assert.Equal(t, 0.9, *maverick.Tunables.Temperature)

	scout, err := c.Build(CategorySpecialized, SubkeyScout)
	require.NoError(t, err)
	assert.Equal(t, "google", scout.Provider)
}

func TestBuildErrors(t *testing.T) {
	c := Default(nil)

	tests := []struct {
		name     string
		category Category
		subkey   string
		want     error
	}{
		{name: "unknown category", category: "poetry", want: ErrUnknownCategory},
		{name: "missing subkey", category: CategorySpecialized, want: ErrUnknownSubkey},
		{name: "unknown subkey", category: CategorySpecialized, subkey: "oracle", want: ErrUnknownSubkey},
		{name: "subkey on flat category", category: CategoryGeneral, subkey: SubkeyScout, want: ErrUnknownSubkey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := c.Build(tt.category, tt.subkey)
			assert.Nil(t, spec)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestUnresolvedCredentialFailsLoudly(t *testing.T) {
	c := Default(NewStaticResolver(CredentialOpenAI))

	_, err := c.Build(CategoryGeneral, "")
	require.ErrorIs(t, err, ErrUnresolvedCredential)
	assert.Contains(t, err.Error(), CredentialAnthropic)

	spec, err := c.Build(CategoryFastOperations, "")
	require.NoError(t, err)
	assert.Equal(t, "gpt-5.2-instant", spec.ProviderModel)
}

func TestMissingCredentialsIsUnresolved(t *testing.T) {
	c := New(map[Category]Entry{
		CategoryGeneral: {Provider: "openai", Model: "m"},
	}, nil)

	_, err := c.Build(CategoryGeneral, "")
	assert.ErrorIs(t, err, ErrUnresolvedCredential)
}

func TestInvalidTemplate(t *testing.T) {
	c := New(map[Category]Entry{
		CategoryGeneral: {Model: "m", Credentials: []string{"k"}},
	}, nil)

	_, err := c.Build(CategoryGeneral, "")
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestFallbackChains(t *testing.T) {
	c := Default(nil)

	reasoning, err := c.Fallbacks(CategoryReasoning)
	require.NoError(t, err)
	require.Len(t, reasoning, 2)
	assert.Equal(t, "gpt-5.2-pro", reasoning[0].ProviderModel)
	assert.Equal(t, "deepseek-reasoner", reasoning[1].ProviderModel)
	assert.Equal(t, []string{CredentialDeepSeek}, reasoning[1].CredentialRefs)

	coding, err := c.Fallbacks(CategoryCoding)
	require.NoError(t, err)
	require.Len(t, coding, 1)
	assert.Equal(t, "gpt-5.2-codex", coding[0].ProviderModel)

	general, err := c.Fallbacks(CategoryGeneral)
	require.NoError(t, err)
	require.Len(t, general, 1)

	for _, cat := range []Category{CategoryFastOperations, CategoryAdvancedContext, CategorySpecialized} {
		fb, err := c.Fallbacks(cat)
		require.NoError(t, err)
		assert.Empty(t, fb, "%s has no default fallbacks", cat)
	}

	_, err = c.Fallbacks("poetry")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestFallbackInheritsEntry(t *testing.T) {
	c := New(map[Category]Entry{
		CategoryGeneral: {
			Provider:    "anthropic",
			Model:       "G",
			Credentials: []string{"cred_g"},
			Tunables:    Tunables{MaxTokens: 100, Extra: map[string]any{"top_p": 0.9}},
			Fallbacks: []Template{
				{Provider: "openai", Model: "Z", Tunables: Tunables{MaxTokens: 50}},
			},
		},
	}, nil)

	fb, err := c.Fallbacks(CategoryGeneral)
	require.NoError(t, err)
	require.Len(t, fb, 1)
	assert.Equal(t, []string{"cred_g"}, fb[0].CredentialRefs)
	assert.Equal(t, 50, fb[0].Tunables.MaxTokens)
	assert.Equal(t, 0.9, fb[0].Tunables.Extra["top_p"])
}

func TestSingleFallbackCategoriesRejectChains(t *testing.T) {
	c := New(map[Category]Entry{
		CategoryCoding: {
			Provider: "anthropic", Model: "A", Credentials: []string{"k"},
			Fallbacks: []Template{{Provider: "openai", Model: "B"}, {Provider: "openai", Model: "C"}},
		},
	}, nil)

	_, err := c.Fallbacks(CategoryCoding)
	assert.ErrorIs(t, err, ErrInvalidFallbacks)
}

func TestBuildReturnsFreshSpecs(t *testing.T) {
	c := Default(nil)

	a, err := c.Build(CategoryGeneral, "")
	require.NoError(t, err)
	a.CredentialRefs[0] = "mutated"
	*a.Tunables.Temperature = 2

	b, err := c.Build(CategoryGeneral, "")
	require.NoError(t, err)
	assert.Equal(t, CredentialAnthropic, b.CredentialRefs[0])
	assert.Equal(t, 0.7, *b.Tunables.Temperature)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Default(nil).Validate())

	err := Default(NewStaticResolver(CredentialAnthropic)).Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedCredential)
}

func TestCategoriesOrder(t *testing.T) {
	entries := DefaultEntries()
	entries["zeta"] = Entry{Provider: "p", Model: "m", Credentials: []string{"k"}}
	entries["alpha"] = Entry{Provider: "p", Model: "m", Credentials: []string{"k"}}

	got := New(entries, nil).Categories()
	assert.Equal(t, []Category{
		CategoryFastOperations, CategoryAdvancedContext, CategorySpecialized,
		CategoryCoding, CategoryReasoning, CategoryGeneral, "alpha", "zeta",
	}, got)
}

func TestResolvers(t *testing.T) {
	env := EnvResolver{Lookup: func(k string) (string, bool) {
		switch k {
		case "SET":
			return "sk-123", true
		case "BLANK":
			return "  ", true
		}
		return "", false
	}}
	assert.True(t, env.Resolve("SET"))
	assert.False(t, env.Resolve("BLANK"))
	assert.False(t, env.Resolve("MISSING"))

	assert.True(t, AllowAll.Resolve("x"))
	assert.False(t, AllowAll.Resolve(""))

	static := NewStaticResolver("a")
	assert.True(t, static.Resolve("a"))
	assert.False(t, static.Resolve("b"))
}
