package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dlobd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
markets:
  - index: 0
    kind: perp
    tick_size: 1
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Ingest.Port)
	assert.Equal(t, 16, cfg.Ingest.Workers)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
markets:
  - index: 0
    kind: spot
    tick_size: 5
ingest:
  port: 7000
logging:
  level: debug
  pretty: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Markets, 1)
	assert.Equal(t, uint16(0), cfg.Markets[0].Index)
	assert.Equal(t, uint64(5), cfg.Markets[0].TickSize)
	assert.Equal(t, 7000, cfg.Ingest.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Pretty)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMarketConfig_MarketId(t *testing.T) {
	perp := MarketConfig{Index: 1, Kind: "PERP"}
	id, err := perp.MarketId()
	require.NoError(t, err)
	assert.Equal(t, uint16(1), id.Index)

	_, err = MarketConfig{Kind: "future"}.MarketId()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "no markets",
			cfg:     Config{Ingest: IngestConfig{Port: 1}},
			wantErr: true,
		},
		{
			name: "bad market kind",
			cfg: Config{
				Markets: []MarketConfig{{Kind: "nonsense", TickSize: 1}},
				Ingest:  IngestConfig{Port: 1},
			},
			wantErr: true,
		},
		{
			name: "zero tick size",
			cfg: Config{
				Markets: []MarketConfig{{Kind: "perp", TickSize: 0}},
				Ingest:  IngestConfig{Port: 1},
			},
			wantErr: true,
		},
		{
			name: "bad ingest port",
			cfg: Config{
				Markets: []MarketConfig{{Kind: "perp", TickSize: 1}},
				Ingest:  IngestConfig{Port: 0},
			},
			wantErr: true,
		},
		{
			name: "valid",
			cfg: Config{
				Markets: []MarketConfig{{Kind: "perp", TickSize: 1}},
				Ingest:  IngestConfig{Port: 9001},
			},
			wantErr: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
