package internal

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/bujo/internal/models"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
	if cfg.Source.Kind != SourceVault {
		t.Errorf("source kind = %q, want %q", cfg.Source.Kind, SourceVault)
	}
}

func TestSourceConfig_EmptyKindDefaultsVault(t *testing.T) {
	cfg := SourceConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty kind should default to vault: %v", err)
	}
	if cfg.Kind != SourceVault {
		t.Errorf("kind = %q, want %q", cfg.Kind, SourceVault)
	}
}

func TestSourceConfig_InvalidKind(t *testing.T) {
	cfg := SourceConfig{Kind: "notion"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown source kind should fail")
	}
}

func TestSiYuanConfig_Validation(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Source.Kind = SourceSiYuan
	cfg.SiYuan.URL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid siyuan url should fail")
	}

	cfg.SiYuan.URL = "http://localhost:6806"
	cfg.SiYuan.PollInterval = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid siyuan config should pass: %v", err)
	}

	// Vault sections are not checked for a remote source.
	cfg.Vault.Path = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("vault path should be ignored for siyuan: %v", err)
	}
}

func TestScanConfig_Timezone(t *testing.T) {
	cfg := ScanConfig{Timezone: "UTC"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid timezone should pass: %v", err)
	}
	if cfg.Location() != time.UTC {
		t.Errorf("location = %s", cfg.Location())
	}

	cfg.Timezone = "Mars/Olympus"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown timezone should fail")
	}

	empty := ScanConfig{}
	if empty.Location() != time.Local {
		t.Error("empty timezone should be local time")
	}
}

func TestScanConfig_DirectoryPathRequired(t *testing.T) {
	cfg := ScanConfig{Directories: []models.ProjectDirectory{{ID: "work", Enabled: true}}}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("directory without path should fail")
	}
	if !strings.Contains(err.Error(), "work") {
		t.Errorf("error should name the directory: %v", err)
	}
}

func TestScanConfig_ResolverOptions(t *testing.T) {
	cfg := NewDefaultConfig()
	opts := cfg.Scan.ResolverOptions()
	if opts.TagSearchLimit != 500 || opts.Concurrency != 4 {
		t.Errorf("options = %+v", opts)
	}
}
