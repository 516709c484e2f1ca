package config

import "testing"

func TestGenerationOverrides(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		if got := Temperature(); got != ModelTemperature {
			t.Errorf("Temperature() = %v, want %v", got, ModelTemperature)
		}
		if got := MaxTokens(); got != MaxOutputTokens {
			t.Errorf("MaxTokens() = %v, want %v", got, MaxOutputTokens)
		}
	})

	t.Run("Env overrides", func(t *testing.T) {
		t.Setenv("TEMPERATURE", "0.2")
		t.Setenv("MAX_TOKENS", "150")

		if got := Temperature(); got != 0.2 {
			t.Errorf("Temperature() = %v, want 0.2", got)
		}
		if got := MaxTokens(); got != 150 {
			t.Errorf("MaxTokens() = %v, want 150", got)
		}
	})

	t.Run("Garbage falls back", func(t *testing.T) {
		t.Setenv("TEMPERATURE", "hot")
		t.Setenv("MAX_TOKENS", "many")

		if got := Temperature(); got != ModelTemperature {
			t.Errorf("Temperature() = %v, want default on bad input", got)
		}
		if got := MaxTokens(); got != MaxOutputTokens {
			t.Errorf("MaxTokens() = %v, want default on bad input", got)
		}
	})
}

func TestChunkingOverrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "250")
	t.Setenv("RETRIEVAL_K", "3")

	if got := ChunkSize(); got != 250 {
		t.Errorf("ChunkSize() = %d, want 250", got)
	}
	if got := ChunkOverlap(); got != DefaultChunkOverlap {
		t.Errorf("ChunkOverlap() = %d, want default when unset", got)
	}
	if got := RetrievalK(); got != 3 {
		t.Errorf("RetrievalK() = %d, want 3", got)
	}
}
