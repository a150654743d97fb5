package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starknet-edu/kakashi/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
base_url: https://example.test
api_key: sk-test
model: text-davinci-003
prompt_template: prompt.txt
seed_tasks: seeds.jsonl
output: generated.json
batch_size: 4
max_instances: 100
sleep: 5s
retry:
  max_attempts: 10
  min_tokens: 200
decoding:
  max_tokens: 1024
  temperature: 0.7
  n: 2
  stop: ["###"]
generate:
  requests: 20
  seeds_per_prompt: 3
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.test", cfg.BaseURL)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, 4, cfg.BatchSize)
	assert.Equal(t, 100, cfg.MaxInstances)
	assert.Equal(t, 10, cfg.Retry.MaxAttempts)
	assert.Equal(t, 200, cfg.Retry.MinTokens)
	assert.Equal(t, 1024, cfg.Decoding.MaxTokens)
	require.NotNil(t, cfg.Decoding.Temperature)
	assert.Equal(t, 0.7, *cfg.Decoding.Temperature)
	assert.Nil(t, cfg.Decoding.TopP)
	assert.Equal(t, 2, cfg.Decoding.N)
	assert.Equal(t, []string{"###"}, cfg.Decoding.Stop)
	assert.Equal(t, 20, cfg.Generate.Requests)

	d, err := cfg.SleepDuration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)

	require.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
api_key: sk-test
prompt_template: prompt.txt
seed_tasks: seeds.json
output: out.json
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, config.DefaultModel, cfg.Model)
	assert.Equal(t, config.DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, config.DefaultSleep, cfg.Sleep)
	require.NoError(t, cfg.Validate())
}

func TestLoad_ExpandsEnvReferences(t *testing.T) {
	t.Setenv("KAKASHI_TEST_KEY", "sk-from-env")

	path := writeConfig(t, `
api_key: ${KAKASHI_TEST_KEY}
prompt_template: prompt.txt
seed_tasks: seeds.json
output: out.json
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.APIKey)
}

func TestLoad_APIKeyFallsBackToEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-fallback")

	path := writeConfig(t, `
prompt_template: prompt.txt
seed_tasks: seeds.json
output: out.json
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-fallback", cfg.APIKey)
}

func TestValidate_Failures(t *testing.T) {
	base := func() config.Config {
		return config.Config{
			APIKey:         "sk-test",
			BatchSize:      1,
			Sleep:          "1s",
			PromptTemplate: "prompt.txt",
			SeedTasks:      "seeds.json",
			Output:         "out.json",
		}
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "missing api key", mutate: func(c *config.Config) { c.APIKey = "" }},
		{name: "zero batch size", mutate: func(c *config.Config) { c.BatchSize = 0 }},
		{name: "missing template", mutate: func(c *config.Config) { c.PromptTemplate = "" }},
		{name: "missing seeds", mutate: func(c *config.Config) { c.SeedTasks = "" }},
		{name: "missing output", mutate: func(c *config.Config) { c.Output = "" }},
		{name: "bad sleep", mutate: func(c *config.Config) { c.Sleep = "soon" }},
		{name: "negative n", mutate: func(c *config.Config) { c.Decoding.N = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
