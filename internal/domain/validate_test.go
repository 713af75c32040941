package domain

import "testing"

func TestValidateIntentToolMappingsUndeclaredIntent(t *testing.T) {
	cfg := &MasterDomainConfig{
		Intents:            &IntentsConfig{Intents: map[string]IntentConfig{"book_demo": {}}},
		Tools:              &ToolsConfig{Schemas: map[string]ToolSchema{"schedule": {}}},
		IntentToolMappings: &IntentToolMappingsConfig{Mappings: map[string]string{"cancel": "schedule"}},
	}
	err := Validate(cfg, nil)
	if err == nil {
		t.Fatal("expected error for undeclared intent")
	}
}

func TestValidateIntentToolMappingsUndeclaredTool(t *testing.T) {
	cfg := &MasterDomainConfig{
		Intents:            &IntentsConfig{Intents: map[string]IntentConfig{"book_demo": {}}},
		Tools:              &ToolsConfig{Schemas: map[string]ToolSchema{}},
		IntentToolMappings: &IntentToolMappingsConfig{Mappings: map[string]string{"book_demo": "schedule"}},
	}
	err := Validate(cfg, nil)
	if err == nil {
		t.Fatal("expected error for undeclared tool")
	}
}

func TestValidateIntentToolMappingsOK(t *testing.T) {
	cfg := &MasterDomainConfig{
		Intents:            &IntentsConfig{Intents: map[string]IntentConfig{"book_demo": {}}},
		Tools:              &ToolsConfig{Schemas: map[string]ToolSchema{"schedule": {}}},
		IntentToolMappings: &IntentToolMappingsConfig{Mappings: map[string]string{"book_demo": "schedule"}},
	}
	if err := Validate(cfg, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateStageTransitionToUndeclaredStage(t *testing.T) {
	cfg := &MasterDomainConfig{
		Stages: &StagesConfig{
			Initial: "greeting",
			Stages: map[string]StageConfig{
				"greeting": {Transitions: []string{"discovery", "nonexistent"}},
				"discovery": {},
			},
		},
	}
	err := Validate(cfg, nil)
	if err == nil {
		t.Fatal("expected error for transition to undeclared stage")
	}
}

func TestValidateStageInitialUndeclared(t *testing.T) {
	cfg := &MasterDomainConfig{
		Stages: &StagesConfig{
			Initial: "missing",
			Stages:  map[string]StageConfig{"greeting": {}},
		},
	}
	if err := Validate(cfg, nil); err == nil {
		t.Fatal("expected error for undeclared initial stage")
	}
}

func TestValidateCompetitorUndeclaredType(t *testing.T) {
	cfg := &MasterDomainConfig{
		Competitors: &CompetitorsConfig{Competitors: map[string]CompetitorConfig{
			"foo": {Type: "enterprise"},
		}},
		EntityTypes: &EntityTypesConfig{CompetitorTypes: []string{"smb"}},
	}
	if err := Validate(cfg, nil); err == nil {
		t.Fatal("expected error for undeclared competitor type")
	}
}

func TestValidateCompetitorDeclaredTypeOK(t *testing.T) {
	cfg := &MasterDomainConfig{
		Competitors: &CompetitorsConfig{Competitors: map[string]CompetitorConfig{
			"foo": {Type: "smb"},
		}},
		EntityTypes: &EntityTypesConfig{CompetitorTypes: []string{"smb", "enterprise"}},
	}
	if err := Validate(cfg, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateDuplicateSlotAlias(t *testing.T) {
	cfg := &MasterDomainConfig{
		Slots: &SlotsConfig{Slots: map[string]SlotConfig{
			"email":   {Aliases: []string{"contact", "mail"}},
			"company": {Aliases: []string{"contact"}},
		}},
	}
	if err := Validate(cfg, nil); err == nil {
		t.Fatal("expected error for duplicate slot alias")
	}
}

func TestValidateUnresolvedPlaceholders(t *testing.T) {
	cfg := &MasterDomainConfig{}
	if err := Validate(cfg, []string{"unknown_var"}); err == nil {
		t.Fatal("expected error for unresolved placeholder")
	}
}

func TestValidateEmptyConfigOK(t *testing.T) {
	cfg := &MasterDomainConfig{}
	if err := Validate(cfg, nil); err != nil {
		t.Fatalf("empty config should validate cleanly, got: %v", err)
	}
}
