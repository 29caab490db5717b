package redisq

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{Host: "localhost", Port: 6379}

	assert.Equal(t, "localhost:6379", cfg.addr())
	assert.Equal(t, 5, cfg.workers())
	assert.Equal(t, time.Minute, cfg.processInterval())

	cfg.Workers = 20
	cfg.ProcessInterval = 15 * time.Second
	assert.Equal(t, 20, cfg.workers())
	assert.Equal(t, 15*time.Second, cfg.processInterval())
}

func TestMarshalPayload(t *testing.T) {
	var p payload

	require.NoError(t, json.Unmarshal(marshalPayload("user-1"), &p))
	assert.Equal(t, "user-1", p.UserID)

	require.NoError(t, json.Unmarshal(marshalPayload(""), &p))
	assert.Empty(t, p.UserID)
}
