package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(overrides map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := fromViper(newViper(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, int64(2), cfg.Settlement.ServiceFee)
	assert.Equal(t, 5*time.Second, cfg.Settlement.StepTimeout)
	assert.Equal(t, 4, cfg.Settlement.Retry.MaxRetries)
	assert.Equal(t, 20*time.Millisecond, cfg.Settlement.Retry.BaseDelay)
	assert.Equal(t, time.UTC, cfg.Notify.Location)
	assert.Equal(t, "X-Subject", cfg.SubjectHeader)
}

func TestFromViper_ServiceFeeOverride(t *testing.T) {
	t.Parallel()

	cfg, err := fromViper(newViper(map[string]any{"SERVICE_FEE_CREDITS": 5, "NOTIFY_TIMEZONE": "Asia/Jakarta"}))
	require.NoError(t, err)
	assert.Equal(t, int64(5), cfg.Settlement.ServiceFee)
	assert.Equal(t, "Asia/Jakarta", cfg.Notify.Location.String())
}

func TestFromViper_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]map[string]any{
		"negative fee":         {"SERVICE_FEE_CREDITS": -1},
		"unknown storage":      {"STORAGE_BACKEND": "mongo"},
		"postgres without dsn": {"STORAGE_BACKEND": "postgres"},
		"unknown mirror":       {"MIRROR_BACKEND": "s3"},
		"smtp without host":    {"NOTIFY_SENDER": "smtp"},
		"bad timezone":         {"NOTIFY_TIMEZONE": "Mars/Olympus"},
		"zero step timeout":    {"SETTLEMENT_STEP_TIMEOUT": "0s"},
		"unknown notify queue": {"NOTIFY_QUEUE": "kafka"},
		"unknown sync backend": {"SYNC_QUEUE_BACKEND": "etcd"},
	}
	for name, overrides := range cases {
		overrides := overrides
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := fromViper(newViper(overrides))
			assert.Error(t, err)
		})
	}
}

func TestFromViper_SeedFile(t *testing.T) {
	t.Parallel()

	cfg, err := fromViper(newViper(nil))
	require.NoError(t, err)
	assert.Empty(t, cfg.Storage.SeedFile)

	cfg, err = fromViper(newViper(map[string]any{"SEED_FILE": "internal/app/seed/testdata/dev.json"}))
	require.NoError(t, err)
	assert.Equal(t, "internal/app/seed/testdata/dev.json", cfg.Storage.SeedFile)
}
