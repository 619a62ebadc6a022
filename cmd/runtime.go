package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codewright/codewright/internal/config"
	"github.com/codewright/codewright/internal/ledger"
	"github.com/codewright/codewright/internal/llm"
	"github.com/codewright/codewright/internal/mcp"
	"github.com/codewright/codewright/internal/pricing"
	"github.com/codewright/codewright/internal/profiles"
	"github.com/codewright/codewright/internal/tools"
	"github.com/codewright/codewright/internal/ui"
)

// runtimeFlags collects the per-command flag values that feed runtime
// construction. Each command owns its own instance.
type runtimeFlags struct {
	Provider string // provider or provider:model
	Model    string
	Profile  string
	Tools    string
	Yolo     bool
	MaxTurns int
	System   string
}

// runtime bundles everything an exchange-running command needs: the
// configured engine, the approval manager behind its tools, MCP servers,
// and the resolved model and system prompt.
type runtime struct {
	Config   *config.Config
	Profile  *profiles.Profile
	Provider llm.Provider
	Engine   *llm.Engine
	Approval *tools.ApprovalManager
	MCP      *mcp.Manager
	Spinner  *ui.Spinner
	Stats    *ui.SessionStats
	Styles   *ui.Styles
	Model    string
	System   string
	MaxTurns int
}

// Close stops background resources. Safe to call once streaming is done.
func (r *runtime) Close() {
	if r.MCP != nil {
		r.MCP.StopAll()
	}
}

// buildRuntime wires config, profile, provider, tools and MCP servers
// into a ready engine. Precedence for provider/model/tools/turns is
// CLI flag > profile > config.
func buildRuntime(ctx context.Context, flags runtimeFlags) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	profile, err := resolveProfile(cfg, flags.Profile)
	if err != nil {
		return nil, err
	}

	if err := applyModelOverrides(cfg, profile, flags); err != nil {
		return nil, err
	}

	ui.InitTheme(themeFromConfig(cfg.Theme))

	provider, err := llm.NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	model := llm.ResolveModelAlias(cfg.EffectiveModel(cfg.Provider))
	if model == "" {
		providerCfg := cfg.Providers[cfg.Provider]
		model = llm.DefaultModelForProvider(config.InferProviderType(cfg.Provider, providerCfg.Type))
	}
	if model == "" {
		return nil, fmt.Errorf("no model configured for provider %q (set model in config or pass --model)", cfg.Provider)
	}

	toolCfg := resolveToolConfig(cfg, profile, flags.Tools)
	if errs := toolCfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid tool config: %w", errs[0])
	}

	approval, err := tools.NewApprovalManager(toolCfg)
	if err != nil {
		return nil, err
	}
	if flags.Yolo {
		approval.SetYoloMode(true)
	}

	registry, err := tools.NewRegistry(toolCfg, approval)
	if err != nil {
		return nil, err
	}

	engine := llm.NewEngine(provider, registry)

	var mcpManager *mcp.Manager
	if len(cfg.MCP) > 0 {
		mcpManager = mcp.NewManager()
		if err := mcpManager.StartAll(ctx, mcpServerConfigs(cfg.MCP)); err != nil {
			slog.Warn("mcp servers unavailable", "error", err)
			mcpManager = nil
		} else {
			mcpManager.RegisterTools(engine.Tools())
		}
	}

	r := &runtime{
		Config:   cfg,
		Profile:  profile,
		Provider: provider,
		Engine:   engine,
		Approval: approval,
		MCP:      mcpManager,
		Spinner:  ui.NewSpinner(),
		Stats:    ui.NewSessionStats(),
		Styles:   ui.DefaultStyles(),
		Model:    model,
		System:   buildSystemPrompt(profile, flags.System),
		MaxTurns: resolveMaxTurns(cfg, profile, flags.MaxTurns),
	}

	// Interactive approval prompts share the terminal with the spinner;
	// stop it before the form takes over.
	askUser := approval.PromptFunc
	approval.PromptFunc = func(req *tools.ApprovalRequest) tools.Decision {
		r.Spinner.Stop()
		return askUser(req)
	}

	engine.Defaults = llm.Request{
		Model:             r.Model,
		MaxTurns:          r.MaxTurns,
		MaxOutputTokens:   cfg.MaxOutputTokens,
		Temperature:       cfg.Temperature,
		ParallelToolCalls: cfg.ParallelToolCalls,
	}
	if r.System != "" {
		engine.Defaults.Messages = []llm.Message{llm.SystemText(r.System)}
	}

	return r, nil
}

// resolveProfile loads the named profile, falling back to the config's
// profile and then the builtin default.
func resolveProfile(cfg *config.Config, flagValue string) (*profiles.Profile, error) {
	name := flagValue
	if name == "" {
		name = cfg.Profile
	}
	explicit := name != ""
	if name == "" {
		name = "default"
	}

	registry := profiles.NewRegistry()
	profile, err := registry.Get(name)
	if err != nil {
		if explicit {
			return nil, fmt.Errorf("load profile %q: %w", name, err)
		}
		return nil, fmt.Errorf("load default profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %q: %w", name, err)
	}
	return profile, nil
}

// applyModelOverrides applies provider/model choices in CLI > profile >
// config order. The --provider flag accepts "provider:model".
func applyModelOverrides(cfg *config.Config, profile *profiles.Profile, flags runtimeFlags) error {
	providerName := ""
	model := flags.Model

	if flags.Provider != "" {
		name, flagModel, err := llm.ParseProviderModel(flags.Provider, cfg)
		if err != nil {
			return err
		}
		providerName = name
		if model == "" {
			model = flagModel
		}
	}

	if providerName == "" && profile.Provider != "" {
		providerName = profile.Provider
	}
	if model == "" && profile.Model != "" {
		model = profile.Model
	}

	cfg.ApplyOverrides(providerName, llm.ResolveModelAlias(model))
	return nil
}

// resolveToolConfig builds the tool configuration from config, then
// narrows it by the profile's tool selection and the --tools flag.
func resolveToolConfig(cfg *config.Config, profile *profiles.Profile, toolsFlag string) tools.ToolConfig {
	tc := tools.FromConfig(cfg)

	if profile.HasEnabledList() || profile.HasDisabledList() {
		tc.Enabled = profile.EnabledTools(tc.Enabled)
	}
	tc.ShellAllow = append(tc.ShellAllow, profile.Shell.Allow...)

	if toolsFlag != "" {
		tc.Enabled = tools.ParseToolsFlag(toolsFlag)
	}
	return tc
}

// buildSystemPrompt expands the profile's system prompt (or the --system
// override) and appends discovered project instructions.
func buildSystemPrompt(profile *profiles.Profile, override string) string {
	base := profile.SystemPrompt
	if override != "" {
		base = override
	}

	prompt := profiles.ExpandTemplate(base, profiles.NewTemplateContext())

	if project := profiles.DiscoverProjectInstructions(); project != "" {
		if prompt != "" {
			prompt += "\n\n---\n\n" + project
		} else {
			prompt = project
		}
	}
	return prompt
}

func resolveMaxTurns(cfg *config.Config, profile *profiles.Profile, flagValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	if profile.MaxTurns > 0 {
		return profile.MaxTurns
	}
	return cfg.MaxTurns
}

// mcpServerConfigs converts the config file's server map to the mcp
// package's config type.
func mcpServerConfigs(servers map[string]config.MCPServerConfig) map[string]mcp.ServerConfig {
	out := make(map[string]mcp.ServerConfig, len(servers))
	for name, s := range servers {
		out[name] = mcp.ServerConfig{
			Command: s.Command,
			Args:    s.Args,
			Env:     s.Env,
			URL:     s.URL,
		}
	}
	return out
}

func themeFromConfig(c config.ThemeConfig) ui.ThemeConfig {
	return ui.ThemeConfig{
		Primary:   c.Primary,
		Secondary: c.Secondary,
		Success:   c.Success,
		Error:     c.Error,
		Warning:   c.Warning,
		Muted:     c.Muted,
		Text:      c.Text,
		Spinner:   c.Spinner,
	}
}

// buildRequest assembles a request from conversation messages using the
// runtime's resolved settings. The system prompt is prepended unless the
// caller's history already starts with one.
func (r *runtime) buildRequest(messages []llm.Message) llm.Request {
	if r.System != "" && (len(messages) == 0 || messages[0].Role != llm.RoleSystem) {
		messages = append([]llm.Message{llm.SystemText(r.System)}, messages...)
	}
	req := llm.Request{
		Model:             r.Model,
		Messages:          messages,
		MaxTurns:          r.MaxTurns,
		MaxOutputTokens:   r.Config.MaxOutputTokens,
		Temperature:       r.Config.Temperature,
		ParallelToolCalls: r.Config.ParallelToolCalls,
	}
	if specs := r.Engine.Tools().AllSpecs(); len(specs) > 0 {
		req.Tools = specs
		req.ToolChoice = llm.ToolChoice{Mode: llm.ToolChoiceAuto}
	}
	return req
}

// finishExchange folds a completed reply into session stats and the
// local spend ledger. Recording is best-effort.
func (r *runtime) finishExchange(ctx context.Context, reply *llm.Reply) {
	if reply == nil {
		return
	}

	usage := reply.Usage
	r.Stats.AddUsage(usage.InputTokens, usage.OutputTokens, usage.CachedInputTokens)

	cost := pricing.Cost(r.Model, usage)
	r.Stats.AddCost(cost.USD, cost.Known)
	if cost.Note != "" {
		slog.Debug("cost estimate", "note", cost.Note)
	}

	if !r.Config.Usage.Track || usage.IsZero() {
		return
	}
	entry := ledger.Entry{
		Provider:          r.Provider.Name(),
		Model:             r.Model,
		InputTokens:       usage.InputTokens,
		OutputTokens:      usage.OutputTokens,
		CachedInputTokens: usage.CachedInputTokens,
		ToolCalls:         len(reply.ToolUses),
		CostUSD:           cost.USD,
	}
	if path := r.Config.Usage.Path; path != "" {
		l, err := ledger.Open(path)
		if err != nil {
			slog.Warn("usage ledger unavailable", "error", err)
			return
		}
		defer l.Close()
		if err := l.Record(ctx, entry); err != nil {
			slog.Warn("usage ledger record failed", "error", err)
		}
		return
	}
	ledger.Append(ctx, entry)
}
