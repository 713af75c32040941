package domain

// defaultQualityTierFactors maps the generic fallback tier identifiers to
// the factors returned by views when a domain has not configured its own
// scoring thresholds — never a domain-specific identifier, per spec §4.5.
var defaultQualityTierFactors = map[string]float64{
	"tier_1": 1.0,
	"tier_2": 0.75,
	"tier_3": 0.5,
}

// AgentView is the narrow read-only facade over [MasterDomainConfig] that
// the conversation orchestrator consumes: stages, slots, scoring,
// objections, segments, personas. It never exposes the master config
// itself, so a consumer cannot reach fields outside its concern.
type AgentView struct {
	cfg *MasterDomainConfig
}

// NewAgentView constructs an AgentView over cfg.
func NewAgentView(cfg *MasterDomainConfig) *AgentView { return &AgentView{cfg: cfg} }

// StageTransitions returns the declared transitions for stage id, or nil if
// the stage or stages sub-config is absent.
func (v *AgentView) StageTransitions(id string) []string {
	if v.cfg.Stages == nil {
		return nil
	}
	return v.cfg.Stages.Stages[id].Transitions
}

// InitialStage returns the domain's configured starting stage, or the empty
// string if none was configured.
func (v *AgentView) InitialStage() string {
	if v.cfg.Stages == nil {
		return ""
	}
	return v.cfg.Stages.Initial
}

// Slot returns the declared schema for slot id.
func (v *AgentView) Slot(id string) (SlotConfig, bool) {
	if v.cfg.Slots == nil {
		return SlotConfig{}, false
	}
	s, ok := v.cfg.Slots.Slots[id]
	return s, ok
}

// ObjectionResponse returns the resolved (already variable-substituted)
// response template for objection id.
func (v *AgentView) ObjectionResponse(id string) (string, bool) {
	if v.cfg.Objections == nil {
		return "", false
	}
	o, ok := v.cfg.Objections.Objections[id]
	return o.Response, ok
}

// Persona returns the persona configuration for id.
func (v *AgentView) Persona(id string) (PersonaConfig, bool) {
	if v.cfg.Personas == nil {
		return PersonaConfig{}, false
	}
	p, ok := v.cfg.Personas.Personas[id]
	return p, ok
}

// Segment returns the segment configuration for id.
func (v *AgentView) Segment(id string) (SegmentConfig, bool) {
	if v.cfg.Segments == nil {
		return SegmentConfig{}, false
	}
	s, ok := v.cfg.Segments.Segments[id]
	return s, ok
}

// QualityTierFactor returns the configured scoring weight for tier, falling
// back to the generic tier_1/tier_2/tier_3 defaults when the domain has not
// configured its own "quality" scoring category.
func (v *AgentView) QualityTierFactor(tier string) (float64, bool) {
	if v.cfg.Scoring != nil {
		if cat, ok := v.cfg.Scoring.Categories["quality"]; ok {
			if f, ok := cat.Thresholds[tier]; ok {
				return f, true
			}
		}
	}
	f, ok := defaultQualityTierFactors[tier]
	return f, ok
}

// LLMView is the narrow facade the language-model stage consumes: the
// system prompt, vocabulary/phonetic corrections, and brand substitutions.
// All strings returned are already resolved — raw {{...}} templates never
// leak out of the domain package.
type LLMView struct {
	cfg *MasterDomainConfig
}

// NewLLMView constructs an LLMView over cfg.
func NewLLMView(cfg *MasterDomainConfig) *LLMView { return &LLMView{cfg: cfg} }

// SystemPrompt returns the resolved system prompt, or the empty string if
// no prompts sub-config was loaded.
func (v *LLMView) SystemPrompt() string {
	if v.cfg.Prompts == nil {
		return ""
	}
	return v.cfg.Prompts.System
}

// MaxContextTokens returns the configured context-window budget, or 0 if
// unconfigured (callers should apply their own default in that case).
func (v *LLMView) MaxContextTokens() int {
	if v.cfg.Prompts == nil {
		return 0
	}
	return v.cfg.Prompts.MaxContextTokens
}

// PhoneticCorrection returns the configured correction for a mis-transcribed
// term, if any.
func (v *LLMView) PhoneticCorrection(term string) (string, bool) {
	if v.cfg.Vocabulary == nil {
		return "", false
	}
	c, ok := v.cfg.Vocabulary.PhoneticCorrections[term]
	return c, ok
}

// Terminology returns the configured term-to-canonical-form map used by the
// grammar stage to normalize domain-specific vocabulary before phonetic/LLM
// correction runs. Returns nil when no vocabulary sub-config was loaded.
func (v *LLMView) Terminology() map[string]string {
	if v.cfg.Vocabulary == nil {
		return nil
	}
	return v.cfg.Vocabulary.Terminology
}

// BrandVariable returns a resolved brand field, e.g. "name" or "tagline".
func (v *LLMView) BrandVariable(field string) (string, bool) {
	if v.cfg.Domain == nil {
		return "", false
	}
	val, ok := v.cfg.Domain.Brand[field]
	return val, ok
}

// ToolsView is the narrow facade the tool host consumes: schemas, parameter
// aliases, calculation formulas, response templates, and branches.
type ToolsView struct {
	cfg *MasterDomainConfig
}

// NewToolsView constructs a ToolsView over cfg.
func NewToolsView(cfg *MasterDomainConfig) *ToolsView { return &ToolsView{cfg: cfg} }

// Schema returns the declared schema for tool name.
func (v *ToolsView) Schema(name string) (ToolSchema, bool) {
	if v.cfg.Tools == nil {
		return ToolSchema{}, false
	}
	s, ok := v.cfg.Tools.Schemas[name]
	return s, ok
}

// ParameterAlias returns the configured alias for a tool parameter, if any.
func (v *ToolsView) ParameterAlias(toolName, paramName string) (string, bool) {
	schema, ok := v.Schema(toolName)
	if !ok {
		return "", false
	}
	for _, p := range schema.Parameters {
		if p.Name == paramName && p.Alias != "" {
			return p.Alias, true
		}
	}
	return "", false
}

// Calculation returns the named formula for a calculation-kind tool.
func (v *ToolsView) Calculation(name string) (string, bool) {
	if v.cfg.Tools == nil {
		return "", false
	}
	f, ok := v.cfg.Tools.Calculations[name]
	return f, ok
}

// ResponseTemplate returns the resolved response template for tool name.
func (v *ToolsView) ResponseTemplate(name string) (string, bool) {
	if v.cfg.Tools == nil {
		return "", false
	}
	t, ok := v.cfg.Tools.Responses[name]
	return t, ok
}

// Branches returns the declared branches for tool name.
func (v *ToolsView) Branches(name string) []ToolBranch {
	if v.cfg.Tools == nil {
		return nil
	}
	return v.cfg.Tools.Branches[name]
}
