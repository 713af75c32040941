package domain

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// envPrefix is the environment variable prefix for per-field overrides,
// per spec §6: VOICE_AGENT_<SECTION>_<KEY>.
const envPrefix = "VOICE_AGENT_"

// fileSpec binds one logical domain-config section to the YAML file(s) that
// populate it and the decode step that assigns the merged result onto a
// [MasterDomainConfig].
type fileSpec struct {
	Section  string
	RelPaths []string
	Required bool
	decode   func(cfg *MasterDomainConfig, merged map[string]any) error
}

var fileSpecs = []fileSpec{
	{Section: "domain", RelPaths: []string{"domain.yaml"}, Required: true, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &DomainConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.Domain = v
		return nil
	}},
	{Section: "slots", RelPaths: []string{"slots.yaml"}, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &SlotsConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.Slots = v
		return nil
	}},
	{Section: "intents", RelPaths: []string{"intents.yaml"}, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &IntentsConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.Intents = v
		return nil
	}},
	{Section: "stages", RelPaths: []string{"stages.yaml"}, Required: true, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &StagesConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.Stages = v
		return nil
	}},
	{Section: "goals", RelPaths: []string{"goals.yaml"}, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &GoalsConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.Goals = v
		return nil
	}},
	{Section: "objections", RelPaths: []string{"objections.yaml"}, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &ObjectionsConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.Objections = v
		return nil
	}},
	{Section: "segments", RelPaths: []string{"segments.yaml"}, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &SegmentsConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.Segments = v
		return nil
	}},
	{Section: "personas", RelPaths: []string{"personas.yaml"}, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &PersonasConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.Personas = v
		return nil
	}},
	{Section: "scoring", RelPaths: []string{"scoring.yaml"}, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &ScoringConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.Scoring = v
		return nil
	}},
	{Section: "compliance", RelPaths: []string{"compliance.yaml"}, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &ComplianceConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.Compliance = v
		return nil
	}},
	{Section: "vocabulary", RelPaths: []string{"vocabulary.yaml"}, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &VocabularyConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.Vocabulary = v
		return nil
	}},
	{Section: "competitors", RelPaths: []string{"competitors.yaml"}, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &CompetitorsConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.Competitors = v
		return nil
	}},
	{Section: "entity_types", RelPaths: []string{"entity_types.yaml"}, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &EntityTypesConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.EntityTypes = v
		return nil
	}},
	{Section: "extraction_patterns", RelPaths: []string{"extraction_patterns.yaml"}, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &ExtractionPatternsConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.ExtractionPatterns = v
		return nil
	}},
	{Section: "features", RelPaths: []string{"features.yaml"}, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &FeaturesConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.Features = v
		return nil
	}},
	{Section: "signals", RelPaths: []string{"signals.yaml"}, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &SignalsConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.Signals = v
		return nil
	}},
	{Section: "adaptation", RelPaths: []string{"adaptation.yaml"}, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &AdaptationConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.Adaptation = v
		return nil
	}},
	{Section: "intent_tool_mappings", RelPaths: []string{"intent_tool_mappings.yaml"}, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &IntentToolMappingsConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.IntentToolMappings = v
		return nil
	}},
	{Section: "prompts", RelPaths: []string{"prompts/system.yaml"}, Required: true, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &PromptsConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.Prompts = v
		return nil
	}},
	{Section: "tools", RelPaths: []string{
		"tools/schemas.yaml", "tools/responses.yaml", "tools/calculations.yaml",
		"tools/branches.yaml", "tools/documents.yaml", "tools/sms_templates.yaml",
	}, decode: func(c *MasterDomainConfig, m map[string]any) error {
		v := &ToolsConfig{}
		if err := decodeStrict(m, v); err != nil {
			return err
		}
		c.Tools = v
		return nil
	}},
}

// Load reads domains/<id>/ under rootPath, merging base defaults
// (domains/_base/) with the domain's own files (domain wins on conflict),
// then environment-variable overrides, substitutes template variables, and
// validates the result. It returns a structured error listing every
// missing required sub-config or validation failure — the caller must not
// start the process on error.
func Load(domainID, rootPath string) (*MasterDomainConfig, error) {
	cfg := &MasterDomainConfig{ID: domainID}

	var missingRequired []string
	for _, spec := range fileSpecs {
		merged, found, err := loadSection(rootPath, domainID, spec)
		if err != nil {
			return nil, err
		}
		if !found {
			if spec.Required {
				missingRequired = append(missingRequired, spec.RelPaths...)
			} else {
				slog.Warn("domain: optional sub-config not found, using defaults", "section", spec.Section, "domain", domainID)
			}
			continue
		}
		if err := spec.decode(cfg, merged); err != nil {
			return nil, fmt.Errorf("domain: section %q: %w", spec.Section, err)
		}
	}
	if len(missingRequired) > 0 {
		return nil, fmt.Errorf("domain: required sub-config(s) missing for domain %q: %s", domainID, strings.Join(missingRequired, ", "))
	}

	unresolved := substituteConfig(cfg, substitutionTable(cfg))
	if err := Validate(cfg, unresolved); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadSection merges every relative path in spec across the base and
// domain-specific trees and applies this section's environment overrides.
// found is false only when none of spec.RelPaths exist in either tree.
func loadSection(rootPath, domainID string, spec fileSpec) (map[string]any, bool, error) {
	merged := map[string]any{}
	found := false
	for _, relPath := range spec.RelPaths {
		basePath := filepath.Join(rootPath, "domains", "_base", relPath)
		overridePath := filepath.Join(rootPath, "domains", domainID, relPath)

		baseBytes, err := readOptional(basePath)
		if err != nil {
			return nil, false, err
		}
		overrideBytes, err := readOptional(overridePath)
		if err != nil {
			return nil, false, err
		}
		if len(baseBytes) > 0 || len(overrideBytes) > 0 {
			found = true
		}

		fileMerged, err := mergeYAMLDocuments(baseBytes, overrideBytes)
		if err != nil {
			return nil, false, fmt.Errorf("domain: %s: %w", relPath, err)
		}
		merged = mergeMaps(merged, fileMerged)
	}
	return applyEnvOverrides(spec.Section, merged), found, nil
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("domain: read %q: %w", path, err)
	}
	return data, nil
}

// substitutionTable builds the variable table used for {{name}} and
// {brand.field} resolution: domain.variables plus brand fields addressed as
// brand.<field>.
func substitutionTable(cfg *MasterDomainConfig) map[string]string {
	vars := make(map[string]string)
	if cfg.Domain == nil {
		return vars
	}
	for k, v := range cfg.Domain.Variables {
		vars[k] = v
	}
	for k, v := range cfg.Domain.Brand {
		vars["brand."+k] = v
	}
	return vars
}
