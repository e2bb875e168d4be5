package scripts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", EchoScript{})

	script, err := r.Get("echo")
	require.NoError(t, err)
	assert.NotNil(t, script)

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", EchoScript{})
	assert.Panics(t, func() {
		r.Register("echo", EchoScript{})
	})
}

func TestRegisterAfterFreezePanics(t *testing.T) {
	r := NewRegistry()
	r.Freeze()
	assert.Panics(t, func() {
		r.Register("echo", EchoScript{})
	})
}

func TestNames(t *testing.T) {
	r := NewRegistry()
	r.Register("a", EchoScript{})
	r.Register("b", EchoScript{})
	assert.ElementsMatch(t, []string{"a", "b"}, r.Names())
}

func TestEchoScript(t *testing.T) {
	script := EchoScript{}

	assert.False(t, script.ValidateInput(map[string]interface{}{}))
	assert.True(t, script.ValidateInput(map[string]interface{}{"message": "hi"}))

	out, err := script.Run(map[string]interface{}{"message": "hi"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "hi", out.Message)
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	_, err := r.Get("echo")
	assert.NoError(t, err)
}
