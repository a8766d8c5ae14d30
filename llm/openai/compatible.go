package openai

// NewCompatibleClient creates a provider for any OpenAI-compatible endpoint
// (Ollama, Groq, Together, LM Studio, vLLM, ...). The base URL is required;
// many local servers accept any api key, so an empty one is allowed.
func NewCompatibleClient(baseURL, apiKey, defaultModel string) *Client {
	c := NewClient(Config{
		APIKey:       apiKey,
		BaseURL:      baseURL,
		DefaultModel: defaultModel,
	})
	c.apiKeyOptional = true
	return c
}

// NewOllamaClient creates a provider for a local Ollama server.
func NewOllamaClient(defaultModel string) *Client {
	return NewCompatibleClient("http://localhost:11434/v1", "ollama", defaultModel)
}

// NewGroqClient creates a provider for the Groq API.
func NewGroqClient(apiKey, defaultModel string) *Client {
	return NewCompatibleClient("https://api.groq.com/openai/v1", apiKey, defaultModel)
}

// NewTogetherClient creates a provider for the Together API.
func NewTogetherClient(apiKey, defaultModel string) *Client {
	return NewCompatibleClient("https://api.together.xyz/v1", apiKey, defaultModel)
}
