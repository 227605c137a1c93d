package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_DefaultsOnly(t *testing.T) {
	c := New()
	assert.False(t, c.Headless)
	assert.Equal(t, 500*time.Millisecond, c.WaitForStart)
	assert.Equal(t, 15*time.Second, c.Timeout)
	assert.Equal(t, 10, c.ElementsToMatch)
}

func TestNew_EnvOverridesApplyAfterDefaults(t *testing.T) {
	t.Setenv("TAIKO_HEADLESS", "true")
	t.Setenv("TAIKO_HOST", "0.0.0.0")
	t.Setenv("TAIKO_TIMEOUT_MS", "9000")

	c := New()
	assert.True(t, c.Headless)
	assert.Equal(t, "0.0.0.0", c.Host)
	assert.Equal(t, 9*time.Second, c.Timeout)
}

func TestNew_ExplicitOptionsWinOverEnv(t *testing.T) {
	t.Setenv("TAIKO_HEADLESS", "true")

	c := New(func(c *Config) { c.Headless = false })
	assert.False(t, c.Headless)
}

func TestHeadless_OptionSetsFlag(t *testing.T) {
	c := New(Headless())
	assert.True(t, c.Headless)
}

func TestObserve_OptionSetsDelay(t *testing.T) {
	c := New(Observe(250 * time.Millisecond))
	assert.True(t, c.Observe)
	assert.Equal(t, 250*time.Millisecond, c.ObserveTime)
}
