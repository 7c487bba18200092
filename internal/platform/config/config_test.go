package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "flightsurety/pkg/domain"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, id.Units(1).Dec(), cfg.Protocol.RegistrationFee.Dec())
	assert.Equal(t, id.Units(10).Dec(), cfg.Protocol.FundingThreshold.Dec())
	assert.Equal(t, 3, cfg.Protocol.QuorumThreshold)
	assert.Equal(t, uint8(10), cfg.Protocol.IndexRange)
	assert.Equal(t, 4, cfg.Protocol.DirectAdmissionLimit)
	assert.False(t, cfg.Protocol.AllowReRegistration)
}

func TestMergeYAML(t *testing.T) {
	owner := id.NewAccountID()
	doc := []byte(`
server:
  addr: ":9090"
  owner: "` + owner.String() + `"
  devCallerHeader: true
protocol:
  premiumCeiling: "0.5"
  quorumThreshold: 5
  requestTTL: 10m
  allowReRegistration: true
simulator:
  enabled: true
  codes: [20]
`)
	cfg := Defaults()
	require.NoError(t, MergeYAML(&cfg, doc))

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, owner, cfg.Server.Owner)
	assert.True(t, cfg.Server.DevCallerHeader)
	assert.Equal(t, "500000000000000000", cfg.Protocol.PremiumCeiling.Dec())
	assert.Equal(t, 5, cfg.Protocol.QuorumThreshold)
	assert.Equal(t, 10*time.Minute, cfg.Protocol.RequestTTL)
	assert.True(t, cfg.Protocol.AllowReRegistration)
	assert.True(t, cfg.Simulator.Enabled)
	assert.Equal(t, []int{20}, cfg.Simulator.Codes)
	// untouched values keep their defaults
	assert.Equal(t, id.Units(1).Dec(), cfg.Protocol.RegistrationFee.Dec())
}

func TestMergeYAML_RejectsBadAmounts(t *testing.T) {
	cfg := Defaults()
	err := MergeYAML(&cfg, []byte("protocol:\n  registrationFee: \"lots\"\n"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LEDGER_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/flightsurety")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("QUORUM_THRESHOLD", "4")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Ledger.Driver)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 4, cfg.Protocol.QuorumThreshold)
}

func TestValidate(t *testing.T) {
	t.Run("quorum below minimum", func(t *testing.T) {
		cfg := Defaults()
		cfg.Protocol.QuorumThreshold = 2
		assert.Error(t, cfg.Validate())
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		cfg := Defaults()
		cfg.Ledger.Driver = "postgres"
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := Defaults()
		cfg.Ledger.Driver = "sqlite"
		assert.Error(t, cfg.Validate())
	})
}
