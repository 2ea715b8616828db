package config

import (
	"errors"
	"testing"
)

// validConfig returns a Config that passes Validate().
func validConfig() *Config {
	return &Config{
		ModelName:          "gpt-4o",
		Temperature:        0.0,
		EmbedderModel:      "text-embedding-3-small",
		EmbedderDimensions: 1536,
		SearchTopK:         8,
		ScoreThreshold:     0.0,
		SummaryTrigger:     12,
		SummaryKeep:        2,
		ChunkSize:          1000,
		ChunkOverlap:       200,
		ChunksDir:          "chunks",
		EmbeddingsDir:      "embeddings",
		PostgresHost:       "localhost",
		PostgresPort:       5432,
		PostgresUser:       "clausa",
		PostgresPassword:   "test_password_123",
		PostgresDBName:     "clausa",
		PostgresSSLMode:    "disable",
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() on valid config = %v, want nil", err)
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	err := validConfig().Validate()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Validate() = %v, want ErrMissingAPIKey", err)
	}
}

func TestValidate_NilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() on nil = %v, want ErrConfigNil", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "temperature too high",
			mutate:  func(c *Config) { c.Temperature = 2.5 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "empty embedder model",
			mutate:  func(c *Config) { c.EmbedderModel = "" },
			wantErr: ErrInvalidEmbedderModel,
		},
		{
			name:    "wrong embedder dimensions",
			mutate:  func(c *Config) { c.EmbedderDimensions = 768 },
			wantErr: ErrInvalidEmbedderDimensions,
		},
		{
			name:    "top-k zero",
			mutate:  func(c *Config) { c.SearchTopK = 0 },
			wantErr: ErrInvalidSearchTopK,
		},
		{
			name:    "top-k too large",
			mutate:  func(c *Config) { c.SearchTopK = 51 },
			wantErr: ErrInvalidSearchTopK,
		},
		{
			name:    "negative score threshold",
			mutate:  func(c *Config) { c.ScoreThreshold = -0.1 },
			wantErr: ErrInvalidScoreThreshold,
		},
		{
			name:    "overlap exceeds chunk size",
			mutate:  func(c *Config) { c.ChunkOverlap = 1000 },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "zero chunk size",
			mutate:  func(c *Config) { c.ChunkSize = 0 },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "summary trigger too small",
			mutate:  func(c *Config) { c.SummaryTrigger = 1 },
			wantErr: ErrInvalidSummaryTrigger,
		},
		{
			name:    "summary keep exceeds trigger",
			mutate:  func(c *Config) { c.SummaryKeep = 12 },
			wantErr: ErrInvalidSummaryTrigger,
		},
		{
			name:    "empty postgres host",
			mutate:  func(c *Config) { c.PostgresHost = "" },
			wantErr: ErrInvalidPostgresHost,
		},
		{
			name:    "postgres port out of range",
			mutate:  func(c *Config) { c.PostgresPort = 70000 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "empty db name",
			mutate:  func(c *Config) { c.PostgresDBName = "" },
			wantErr: ErrInvalidPostgresDBName,
		},
		{
			name:    "empty password",
			mutate:  func(c *Config) { c.PostgresPassword = "" },
			wantErr: ErrInvalidPostgresPassword,
		},
		{
			name:    "deprecated ssl mode",
			mutate:  func(c *Config) { c.PostgresSSLMode = "prefer" },
			wantErr: ErrInvalidPostgresSSLMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
