// Package llm is the "openai" connection type: cached, retried calls to an
// OpenAI-compatible API through github.com/sashabaranov/go-openai.
//
// Configuration:
//
//	[connections.openai]
//	api_key = "${OPENAI_API_KEY}"
//	model = "text-davinci-003"
//	embedding_model = "text-embedding-ada-002"
//	chat_model = "gpt-4o"
//	max_tokens = 256
//	temperature = 1.0
//	endpoint = "https://api.openai.com"
//	timeout = "60s"
//	rate_limit = 5      # requests per second, 0 disables
//
// Completion and Embedding cache results for an hour and retry transient
// failures on a reset client. ChatCompletion caches up to 10000 answers and
// is not retried. Rate limit and server errors are transient; every other
// API error is permanent.
package llm
