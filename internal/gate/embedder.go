package gate

import chromem "github.com/philippgille/chromem-go"

// Embedder is the external embedding capability the gate consumes. It is
// chromem's function contract, so any chromem-provided backend plugs in
// directly.
type Embedder = chromem.EmbeddingFunc

// NewOpenAIEmbedder returns an embedder backed by OpenAI's embedding API.
// This is the default production backend.
func NewOpenAIEmbedder(apiKey string, model string) Embedder {
	return chromem.NewEmbeddingFuncOpenAI(apiKey, chromem.EmbeddingModelOpenAI(model))
}
