package scripts

import "fmt"

// EchoScript is a minimal script used by the default registry and the
// tests: it echoes its meta back as output data.
type EchoScript struct{}

// ValidateInput accepts any meta that carries a "message" key.
func (EchoScript) ValidateInput(meta map[string]interface{}) bool {
	_, ok := meta["message"]
	return ok
}

// Run returns the message and the full meta payload.
func (EchoScript) Run(meta map[string]interface{}) (Output, error) {
	return Output{
		Success: true,
		Message: fmt.Sprintf("%v", meta["message"]),
		Data:    meta,
	}, nil
}

// DefaultRegistry returns a registry with the built-in scripts.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("echo", EchoScript{})
	return r
}
