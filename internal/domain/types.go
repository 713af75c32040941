// Package domain loads and validates the hierarchical, per-domain YAML
// configuration that parameterizes business behavior (prompts, stages,
// tools, compliance rules, vocabulary) without code changes, and exposes it
// to the rest of the core through narrow, read-only [DomainView] facades.
package domain

// MasterDomainConfig is the immutable, validated configuration for one
// domain, loaded once per process by [Load]. Every sub-config is optional;
// a nil field means that concern was not configured for this domain and
// consuming views must fall back to generic defaults.
type MasterDomainConfig struct {
	ID string

	Domain             *DomainConfig
	Slots              *SlotsConfig
	Intents            *IntentsConfig
	Stages             *StagesConfig
	Goals              *GoalsConfig
	Segments           *SegmentsConfig
	Scoring            *ScoringConfig
	Compliance         *ComplianceConfig
	Vocabulary         *VocabularyConfig
	Objections         *ObjectionsConfig
	Competitors        *CompetitorsConfig
	Features           *FeaturesConfig
	Personas           *PersonasConfig
	Prompts            *PromptsConfig
	Tools              *ToolsConfig
	Signals            *SignalsConfig
	EntityTypes        *EntityTypesConfig
	ExtractionPatterns *ExtractionPatternsConfig
	Adaptation         *AdaptationConfig
	IntentToolMappings *IntentToolMappingsConfig
}

// DomainConfig is domain.yaml: brand identity, constants, rates, thresholds.
type DomainConfig struct {
	Brand      map[string]string `yaml:"brand"`
	Currency   string            `yaml:"currency"`
	Variables  map[string]string `yaml:"variables"`
	Constants  map[string]float64 `yaml:"constants"`
	Rates      map[string]float64 `yaml:"rates"`
	Thresholds map[string]float64 `yaml:"thresholds"`
}

// SlotConfig describes one extractable conversation slot.
type SlotConfig struct {
	Type     string   `yaml:"type"`
	Aliases  []string `yaml:"aliases"`
	Required bool     `yaml:"required"`
}

// SlotsConfig is slots.yaml: slot schema, aliases, parsing rules.
type SlotsConfig struct {
	Slots map[string]SlotConfig `yaml:"slots"`
}

// IntentConfig is one recognizable user intent.
type IntentConfig struct {
	SlotHints []string `yaml:"slot_hints"`
}

// IntentsConfig is intents.yaml.
type IntentsConfig struct {
	Intents map[string]IntentConfig `yaml:"intents"`
}

// StageConfig is one conversation stage: its allowed transitions and the
// slots/intents that must be resolved before the orchestrator will advance.
type StageConfig struct {
	Transitions  []string `yaml:"transitions"`
	RequiredInfo []string `yaml:"required_info"`
	Guidance     string   `yaml:"guidance"`
}

// StagesConfig is stages.yaml: the closed set of stages for this domain,
// matching spec §3's ConversationState (Greeting, Discovery, Qualification,
// Presentation, ObjectionHandling, Closing, Farewell) plus any
// domain-specific additions.
type StagesConfig struct {
	Stages  map[string]StageConfig `yaml:"stages"`
	Initial string                 `yaml:"initial"`
}

// GoalsConfig declares per-stage success criteria; not part of spec.md's
// closed sub-config list but present in the wider domain-config corpus and
// consumed the same way (optional, degrades gracefully when absent).
type GoalsConfig struct {
	Goals map[string]string `yaml:"goals"`
}

// ObjectionConfig is one recognized objection pattern and its templated response.
type ObjectionConfig struct {
	Patterns []string `yaml:"patterns"`
	Response string   `yaml:"response"`
}

// ObjectionsConfig is objections.yaml.
type ObjectionsConfig struct {
	Objections map[string]ObjectionConfig `yaml:"objections"`
}

// SegmentConfig is one customer segment and the persona it maps to.
type SegmentConfig struct {
	PersonaRef string `yaml:"persona_ref"`
	Type       string `yaml:"type"`
}

// SegmentsConfig is segments.yaml.
type SegmentsConfig struct {
	Segments map[string]SegmentConfig `yaml:"segments"`
}

// PersonaConfig is one agent persona: tone, complexity, urgency, and
// localized phrasing.
type PersonaConfig struct {
	Tone       string            `yaml:"tone"`
	Complexity string            `yaml:"complexity"`
	Urgency    string            `yaml:"urgency"`
	Phrases    map[string]string `yaml:"phrases"`
}

// PersonasConfig is personas.yaml.
type PersonasConfig struct {
	Personas map[string]PersonaConfig `yaml:"personas"`
}

// ScoringCategory is one lead-scoring dimension.
type ScoringCategory struct {
	Weight     float64            `yaml:"weight"`
	Thresholds map[string]float64 `yaml:"thresholds"`
}

// ScoringConfig is scoring.yaml: lead-scoring categories, weights, thresholds.
type ScoringConfig struct {
	Categories map[string]ScoringCategory `yaml:"categories"`
}

// ComplianceConfig is compliance.yaml: rate bounds, forbidden phrases, disclosures.
type ComplianceConfig struct {
	RateBounds       RateBounds `yaml:"rate_bounds"`
	ForbiddenPhrases []string   `yaml:"forbidden_phrases"`
	Disclosures      []string   `yaml:"disclosures"`
}

// RateBounds is an inclusive [Min, Max] bound on a quoted rate.
type RateBounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// VocabularyConfig is vocabulary.yaml: phonetic corrections and terminology,
// consumed by the grammar text-stage processor.
type VocabularyConfig struct {
	PhoneticCorrections map[string]string `yaml:"phonetic_corrections"`
	Terminology         map[string]string `yaml:"terminology"`
}

// CompetitorConfig is one tracked competitor record.
type CompetitorConfig struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`
}

// CompetitorsConfig is competitors.yaml.
type CompetitorsConfig struct {
	Competitors map[string]CompetitorConfig `yaml:"competitors"`
}

// EntityTypesConfig is entity_types.yaml: the declared vocabularies that
// other sub-configs' type fields must be drawn from.
type EntityTypesConfig struct {
	CompetitorTypes []string `yaml:"competitor_types"`
	SegmentTypes    []string `yaml:"segment_types"`
	Tiers           []string `yaml:"tiers"`
}

// ExtractionPatternsConfig is extraction_patterns.yaml: named regexes used
// to pull slot values out of transcript text.
type ExtractionPatternsConfig struct {
	Patterns map[string]string `yaml:"patterns"`
}

// FeatureConfig is one product feature and its priority per segment.
type FeatureConfig struct {
	SegmentPriorities map[string]int `yaml:"segment_priorities"`
}

// FeaturesConfig is features.yaml.
type FeaturesConfig struct {
	Features map[string]FeatureConfig `yaml:"features"`
}

// SignalConfig is one weighted lead signal.
type SignalConfig struct {
	Category string  `yaml:"category"`
	Weight   float64 `yaml:"weight"`
}

// SignalsConfig is signals.yaml.
type SignalsConfig struct {
	Signals map[string]SignalConfig `yaml:"signals"`
}

// AdaptationConfig is adaptation.yaml: the substitution variable table plus
// per-segment variable overrides.
type AdaptationConfig struct {
	Variables          map[string]string            `yaml:"variables"`
	SegmentAdaptations map[string]map[string]string `yaml:"segment_adaptations"`
}

// IntentToolMappingsConfig is intent_tool_mappings.yaml: which tool handles
// which recognized intent.
type IntentToolMappingsConfig struct {
	Mappings map[string]string `yaml:"mappings"`
}

// PromptsConfig is prompts/system.yaml: the templated system prompt plus the
// context-window budget referenced by the session's context manager.
type PromptsConfig struct {
	System           string `yaml:"system"`
	MaxContextTokens int    `yaml:"max_context_tokens"`
}

// ToolParam is one named, optionally-aliased tool parameter.
type ToolParam struct {
	Name  string `yaml:"name"`
	Alias string `yaml:"alias"`
}

// ToolSchema is one callable tool's shape, from tools/schemas.yaml.
type ToolSchema struct {
	Description   string      `yaml:"description"`
	Parameters    []ToolParam `yaml:"parameters"`
	ExecutionType string      `yaml:"execution_type"`
}

// ToolBranch is one conditional branch within a tool's response flow.
type ToolBranch struct {
	When string `yaml:"when"`
	Then string `yaml:"then"`
}

// ToolsConfig aggregates the tools/*.yaml family: schemas, templated
// responses, named calculation formulas, branches, documents, and SMS
// templates.
type ToolsConfig struct {
	Schemas      map[string]ToolSchema  `yaml:"schemas"`
	Responses    map[string]string      `yaml:"responses"`
	Calculations map[string]string      `yaml:"calculations"`
	Branches     map[string][]ToolBranch `yaml:"branches"`
	Documents    map[string]string      `yaml:"documents"`
	SMSTemplates map[string]string      `yaml:"sms_templates"`
}
