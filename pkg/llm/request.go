package llm

// Request is the provider-neutral generation request every pkg/providers/*
// client translates into its own wire format.
type Request struct {
	Model       string
	Messages    []Message
	Tools       []Tool
	MaxTokens   int
	Temperature *float64
	Stream      bool
}
