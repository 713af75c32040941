package domain

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir %q: %v", filepath.Dir(full), err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write %q: %v", full, err)
	}
}

func minimalDomainFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "domains/acme/domain.yaml", `
brand:
  name: Acme Corp
variables:
  support_email: support@acme.test
`)
	writeFile(t, root, "domains/acme/stages.yaml", `
initial: greeting
stages:
  greeting:
    transitions: [discovery]
  discovery:
    transitions: [greeting]
`)
	writeFile(t, root, "domains/acme/prompts/system.yaml", `
system: "You are {{brand.name}}'s assistant. Contact {{support_email}} for help."
max_context_tokens: 4000
`)
	return root
}

func TestLoadMinimalDomainSucceeds(t *testing.T) {
	root := minimalDomainFixture(t)
	cfg, err := Load("acme", root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Domain.Brand["name"] != "Acme Corp" {
		t.Errorf("brand.name = %q, want Acme Corp", cfg.Domain.Brand["name"])
	}
	want := "You are Acme Corp's assistant. Contact support@acme.test for help."
	if cfg.Prompts.System != want {
		t.Errorf("system prompt = %q, want %q", cfg.Prompts.System, want)
	}
}

func TestLoadMissingRequiredSectionFails(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "domains/acme/domain.yaml", "brand: {name: Acme}\n")
	// stages.yaml and prompts/system.yaml intentionally absent.
	_, err := Load("acme", root)
	if err == nil {
		t.Fatal("expected error for missing required sub-configs")
	}
}

func TestLoadBaseDefaultsMergeWithDomainOverride(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "domains/_base/domain.yaml", `
brand:
  name: Base Brand
  tagline: Generic tagline
variables:
  support_email: support@base.test
`)
	writeFile(t, root, "domains/acme/domain.yaml", `
brand:
  name: Acme Corp
`)
	writeFile(t, root, "domains/_base/stages.yaml", `
initial: greeting
stages:
  greeting:
    transitions: [discovery]
  discovery: {}
`)
	writeFile(t, root, "domains/acme/prompts/system.yaml", "system: hello\n")

	cfg, err := Load("acme", root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Domain.Brand["name"] != "Acme Corp" {
		t.Errorf("domain override should win: brand.name = %q", cfg.Domain.Brand["name"])
	}
	if cfg.Domain.Brand["tagline"] != "Generic tagline" {
		t.Errorf("base default should survive unmodified: tagline = %q", cfg.Domain.Brand["tagline"])
	}
	if cfg.Domain.Variables["support_email"] != "support@base.test" {
		t.Errorf("base variable should carry through: %q", cfg.Domain.Variables["support_email"])
	}
}

func TestLoadUnresolvedPlaceholderFailsValidation(t *testing.T) {
	root := minimalDomainFixture(t)
	writeFile(t, root, "domains/acme/prompts/system.yaml", "system: \"Hi {{unknown_var}}\"\n")
	_, err := Load("acme", root)
	if err == nil {
		t.Fatal("expected validation error for unresolved placeholder")
	}
}

func TestLoadEnvOverrideAppliesByDottedPath(t *testing.T) {
	root := minimalDomainFixture(t)
	t.Setenv("VOICE_AGENT_DOMAIN_CURRENCY", "EUR")
	cfg, err := Load("acme", root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Domain.Currency != "EUR" {
		t.Errorf("currency = %q, want EUR (env override)", cfg.Domain.Currency)
	}
}
