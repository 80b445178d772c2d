package producer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_RequiresBrokers(t *testing.T) {
	p, err := New(Config{}, nil)
	assert.Nil(t, p)
	assert.ErrorContains(t, err, "kafka brokers not configured")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig([]string{"localhost:9092"})
	assert.Equal(t, "all", cfg.Acks)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
}
