package types

// Config is the application configuration. Model, BaseURL and APIKey are
// pass-through values for the transport; the engine does not interpret them.
type Config struct {
	Model       string  `json:"model" yaml:"model"`
	BaseURL     string  `json:"baseURL" yaml:"baseURL"`
	APIKey      string  `json:"apiKey" yaml:"apiKey"`
	Mode        string  `json:"mode" yaml:"mode"`
	MaxTokens   int     `json:"maxTokens" yaml:"maxTokens"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	DataDir     string  `json:"dataDir" yaml:"dataDir"`
	LogLevel    string  `json:"logLevel" yaml:"logLevel"`
}
