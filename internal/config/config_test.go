package config

import "testing"

func TestApplyOverrides(t *testing.T) {
	cfg := &Config{
		Provider: "anthropic",
		Providers: map[string]ProviderConfig{
			"anthropic": {Model: "claude-sonnet-4-6"},
			"openai":    {Model: "gpt-5.2"},
		},
	}

	cfg.ApplyOverrides("openai", "gpt-5-mini")
	if cfg.Provider != "openai" {
		t.Fatalf("provider=%q, want %q", cfg.Provider, "openai")
	}
	if got := cfg.Providers["openai"].Model; got != "gpt-5-mini" {
		t.Fatalf("openai model=%q, want %q", got, "gpt-5-mini")
	}
	if got := cfg.Providers["anthropic"].Model; got != "claude-sonnet-4-6" {
		t.Fatalf("anthropic model changed unexpectedly: %q", got)
	}

	cfg.ApplyOverrides("", "gpt-5-nano")
	if cfg.Provider != "openai" {
		t.Fatalf("provider changed unexpectedly: %q", cfg.Provider)
	}
	if got := cfg.Providers["openai"].Model; got != "gpt-5-nano" {
		t.Fatalf("openai model=%q, want %q", got, "gpt-5-nano")
	}
}

func TestApplyOverridesNilProvidersMap(t *testing.T) {
	cfg := &Config{Provider: "anthropic"}
	cfg.ApplyOverrides("", "claude-haiku-4-5")
	if got := cfg.Providers["anthropic"].Model; got != "claude-haiku-4-5" {
		t.Fatalf("model=%q, want %q", got, "claude-haiku-4-5")
	}
}

func TestEffectiveModel(t *testing.T) {
	cfg := &Config{
		Model: "claude-sonnet-4-6",
		Providers: map[string]ProviderConfig{
			"ollama": {Model: "qwen3-coder"},
		},
	}

	if got := cfg.EffectiveModel("ollama"); got != "qwen3-coder" {
		t.Errorf("ollama model=%q, want %q", got, "qwen3-coder")
	}
	if got := cfg.EffectiveModel("anthropic"); got != "claude-sonnet-4-6" {
		t.Errorf("anthropic model=%q, want %q", got, "claude-sonnet-4-6")
	}
}

func TestInferProviderType(t *testing.T) {
	cases := []struct {
		name     string
		explicit string
		want     string
	}{
		{"anthropic", "", ProviderTypeAnthropic},
		{"claude", "", ProviderTypeAnthropic},
		{"openai", "", ProviderTypeOpenAI},
		{"google", "", ProviderTypeGemini},
		{"ollama", "", ProviderTypeOllama},
		{"lmstudio", "", ProviderTypeOpenAICompat},
		{"my-server", "", ProviderTypeOpenAICompat},
		{"my-server", "gemini", ProviderTypeGemini},
	}
	for _, tc := range cases {
		if got := InferProviderType(tc.name, tc.explicit); got != tc.want {
			t.Errorf("InferProviderType(%q, %q)=%q, want %q", tc.name, tc.explicit, got, tc.want)
		}
	}
}

func TestResolveCredential(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := &ProviderConfig{APIKey: "sk-from-config"}
	key, source, err := cfg.ResolveCredential(ProviderTypeAnthropic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "sk-from-config" || source != "config" {
		t.Fatalf("got (%q, %q), want (%q, %q)", key, source, "sk-from-config", "config")
	}

	t.Setenv("ANTHROPIC_API_KEY", "sk-from-env")
	cfg = &ProviderConfig{}
	key, source, err = cfg.ResolveCredential(ProviderTypeAnthropic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "sk-from-env" || source != "env" {
		t.Fatalf("got (%q, %q), want (%q, %q)", key, source, "sk-from-env", "env")
	}

	t.Setenv("MY_KEY", "sk-expanded")
	cfg = &ProviderConfig{APIKey: "${MY_KEY}"}
	key, source, err = cfg.ResolveCredential(ProviderTypeAnthropic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "sk-expanded" || source != "env" {
		t.Fatalf("got (%q, %q), want (%q, %q)", key, source, "sk-expanded", "env")
	}

	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg = &ProviderConfig{}
	if _, _, err := cfg.ResolveCredential(ProviderTypeAnthropic); err == nil {
		t.Fatal("expected error for missing required key")
	}

	// Local servers work without a key.
	key, source, err = cfg.ResolveCredential(ProviderTypeOllama)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "" || source != "none" {
		t.Fatalf("got (%q, %q), want empty key with source %q", key, source, "none")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("CW_TEST_VALUE", "resolved")

	cases := []struct {
		in   string
		want string
	}{
		{"${CW_TEST_VALUE}", "resolved"},
		{"$CW_TEST_VALUE", "resolved"},
		{"plain-value", "plain-value"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := expandEnv(tc.in); got != tc.want {
			t.Errorf("expandEnv(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}
