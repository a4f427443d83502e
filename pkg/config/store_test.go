package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFileStore(t *testing.T) {
	t.Run("creates store with custom path", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")

		store, err := NewFileStore(configPath)
		if err != nil {
			t.Fatalf("NewFileStore failed: %v", err)
		}
		if store.Path() != configPath {
			t.Errorf("Expected path %s, got %s", configPath, store.Path())
		}
		if store.Format() != FormatJSON {
			t.Errorf("Expected json format, got %s", store.Format())
		}
		if store.IsModified() {
			t.Error("New store should not be modified")
		}
	})

	t.Run("creates store with default path when empty", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())

		store, err := NewFileStore("")
		if err != nil {
			t.Fatalf("NewFileStore with empty path failed: %v", err)
		}

		homeDir, _ := os.UserHomeDir()
		expectedPath := filepath.Join(homeDir, ".browserkit", "config.json")
		if store.Path() != expectedPath {
			t.Errorf("Expected default path %s, got %s", expectedPath, store.Path())
		}
	})

	t.Run("picks yaml for yaml extensions", func(t *testing.T) {
		for _, name := range []string{"config.yaml", "config.YML"} {
			store, err := NewFileStore(filepath.Join(t.TempDir(), name))
			if err != nil {
				t.Fatalf("NewFileStore failed: %v", err)
			}
			if store.Format() != FormatYAML {
				t.Errorf("%s: expected yaml format, got %s", name, store.Format())
			}
		}
	})

	t.Run("loads existing json file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		content := `{"version": "1.0", "sections": {"browser": {"max_concurrent_sessions": 3}}}`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("Failed to write test config: %v", err)
		}

		store, err := NewFileStore(configPath)
		if err != nil {
			t.Fatalf("NewFileStore failed: %v", err)
		}

		data, _ := store.GetSection("browser")
		if data["max_concurrent_sessions"] != float64(3) {
			t.Errorf("Expected 3, got %v (%T)", data["max_concurrent_sessions"], data["max_concurrent_sessions"])
		}
	})

	t.Run("fails on malformed file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(configPath, []byte("{not json"), 0600); err != nil {
			t.Fatalf("Failed to write test config: %v", err)
		}

		if _, err := NewFileStore(configPath); err == nil {
			t.Error("Expected error for malformed config")
		}
	})
}

func TestFileStoreSaveAndReload(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "nested", name)

			store, err := NewFileStore(configPath)
			if err != nil {
				t.Fatalf("NewFileStore failed: %v", err)
			}

			_ = store.SetSection("navigation", map[string]interface{}{
				"blocked": []interface{}{"*.evil.test"},
			})
			if !store.IsModified() {
				t.Error("Store should be modified after SetSection")
			}

			if err := store.Save(); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if store.IsModified() {
				t.Error("Store should not be modified after Save")
			}

			info, err := os.Stat(configPath)
			if err != nil {
				t.Fatalf("config file not written: %v", err)
			}
			if info.Mode().Perm() != 0600 {
				t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
			}
			if _, err := os.Stat(configPath + ".tmp"); !os.IsNotExist(err) {
				t.Error("temp file should be removed after save")
			}

			reloaded, err := NewFileStore(configPath)
			if err != nil {
				t.Fatalf("reload failed: %v", err)
			}
			data, _ := reloaded.GetSection("navigation")
			blocked, err := stringSliceValue("blocked", data["blocked"])
			if err != nil {
				t.Fatalf("blocked not a list: %v", err)
			}
			if len(blocked) != 1 || blocked[0] != "*.evil.test" {
				t.Errorf("Expected [*.evil.test], got %v", blocked)
			}
		})
	}
}

func TestFileStoreYAMLLayout(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	store, _ := NewFileStore(configPath)
	_ = store.SetSection("browser", map[string]interface{}{"headless": false})
	if err := store.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, _ := os.ReadFile(configPath)
	text := string(raw)
	for _, want := range []string{"version:", "sections:", "browser:", "headless: false"} {
		if !strings.Contains(text, want) {
			t.Errorf("yaml output missing %q:\n%s", want, text)
		}
	}
}

func TestFileStoreCopies(t *testing.T) {
	store, _ := NewFileStore(filepath.Join(t.TempDir(), "config.json"))

	input := map[string]interface{}{"key": "value"}
	_ = store.SetSection("s", input)
	input["key"] = "mutated"

	data, _ := store.GetSection("s")
	if data["key"] != "value" {
		t.Error("SetSection should copy its input")
	}

	data["key"] = "mutated"
	all, _ := store.GetAll()
	if all["s"]["key"] != "value" {
		t.Error("GetSection should return a copy")
	}

	missing, err := store.GetSection("missing")
	if err != nil || len(missing) != 0 {
		t.Errorf("missing section should be empty, got %v, %v", missing, err)
	}
}
