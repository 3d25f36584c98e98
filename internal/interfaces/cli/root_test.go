package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/config"
)

func TestNewRootCommand_Creation(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "retrosynth", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.Contains(t, cmd.Version, Version)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)
}

func TestNewRootCommand_Flags(t *testing.T) {
	cmd := NewRootCommand()
	f := cmd.Flags()

	names := []string{
		"config", "material", "num_results", "alignment", "expansion",
		"filtration", "retrieval_mode", "output", "work_dir", "log-level",
		"verbose", "timeout",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			flag := f.Lookup(name)
			require.NotNil(t, flag, "flag %q should be registered", name)
		})
	}
}

func TestNewRootCommand_DefaultFlagValues(t *testing.T) {
	cmd := NewRootCommand()
	f := cmd.Flags()

	alignment, err := f.GetBool("alignment")
	require.NoError(t, err)
	assert.True(t, alignment)

	expansionFlag, err := f.GetBool("expansion")
	require.NoError(t, err)
	assert.True(t, expansionFlag)

	filtration, err := f.GetBool("filtration")
	require.NoError(t, err)
	assert.False(t, filtration)

	logLevel, err := f.GetString("log-level")
	require.NoError(t, err)
	assert.Equal(t, "info", logLevel)
}

func TestRun_MissingMaterial(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--expansion=false", "--alignment=false"})
	err := cmd.Execute()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "--material")
}

func TestRun_InvalidRetrievalMode(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--material", "benzene", "--retrieval_mode", "bogus-mode"})
	err := cmd.Execute()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval_mode")
}

func TestRun_MissingMaterial_WritesErrorEnvelope(t *testing.T) {
	tmpDir := t.TempDir()
	outPath := filepath.Join(tmpDir, "out.json")

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--output", outPath})
	_ = cmd.Execute()

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &envelope))
	assert.Contains(t, envelope, "error")
	assert.Contains(t, envelope, "material")
}

func TestBuildLogger_DefaultLevel(t *testing.T) {
	opts := &RootOptions{LogLevel: "info"}
	log, err := buildLogger(opts)
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestBuildLogger_VerboseOverride(t *testing.T) {
	opts := &RootOptions{LogLevel: "info", Verbose: true}
	log, err := buildLogger(opts)
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestBuildLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	opts := &RootOptions{LogLevel: "nonsense"}
	log, err := buildLogger(opts)
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestPipelineOptions_FlagsOverrideConfig(t *testing.T) {
	cfg := testConfig()

	opts := &RootOptions{
		Material:      "Benzene",
		NumResults:    25,
		RetrievalMode: "paper-paper",
		WorkDir:       "/tmp/custom",
		Alignment:     true,
		Expansion:     false,
		Filtration:    true,
		Timeout:       5 * time.Second,
	}

	po := pipelineOptions(cfg, opts)
	assert.Equal(t, "Benzene", po.Material)
	assert.Equal(t, 25, po.NumResults)
	assert.Equal(t, "paper-paper", string(po.RetrievalMode))
	assert.Equal(t, "/tmp/custom", po.WorkDir)
	assert.True(t, po.Alignment)
	assert.False(t, po.Expansion)
	assert.True(t, po.Filtration)
}

func TestPipelineOptions_FallsBackToConfigDefaults(t *testing.T) {
	cfg := testConfig()

	opts := &RootOptions{Material: "toluene"}
	po := pipelineOptions(cfg, opts)
	assert.Equal(t, cfg.Pipeline.NumResults, po.NumResults)
	assert.Equal(t, cfg.Pipeline.RetrievalMode, string(po.RetrievalMode))
	assert.Equal(t, cfg.Pipeline.WorkDir, po.WorkDir)
}
