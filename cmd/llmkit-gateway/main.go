// Command llmkit-gateway is a reference chi HTTP front-end over pkg/llmkit:
// POST /v1/chat for a single non-streaming turn, POST /v1/chat/stream for
// an NDJSON-framed sequence of successive GenerationResponse snapshots.
// Example/demonstration scope, not part of llmkit's public API contract.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/harborwave/llmkit/pkg/llm"
	"github.com/harborwave/llmkit/pkg/llmkit"
	"github.com/harborwave/llmkit/pkg/llmkitlog"
)

var client *llmkit.Client

func main() {
	client = llmkit.New(llmkit.Config{
		Logger: llmkitlog.Slog{},
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"service": "llmkit gateway",
			"version": "1.0.0",
		})
	})

	r.Post("/v1/chat", handleChat)
	r.Post("/v1/chat/stream", handleChatStream)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	fmt.Printf("llmkit gateway listening on :%s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, r))
}

// chatRequest is the gateway's wire request: a backend selector plus the
// provider-neutral llm.Request fields a caller supplies directly.
type chatRequest struct {
	Backend string `json:"backend"` // "anthropic" | "openai" | "openai-responses" | "gemini"
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
}

func (req chatRequest) toLLMRequest() llm.Request {
	return llm.Request{
		Model: req.Model,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: req.Prompt},
		},
	}
}

func (req chatRequest) provider() (llmkit.Provider, error) {
	switch req.Backend {
	case "", "anthropic":
		return client.Anthropic(req.APIKey), nil
	case "openai":
		return client.OpenAI(req.APIKey, ""), nil
	case "openai-responses":
		return client.OpenAIResponses(req.APIKey), nil
	case "gemini":
		return client.Gemini(req.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", req.Backend)
	}
}

func handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	provider, err := req.provider()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := provider.Generate(r.Context(), req.toLLMRequest())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// handleChatStream writes one JSON-encoded GenerationResponse snapshot per
// line (NDJSON), flushing after each, so a client can render partial output
// as it arrives instead of waiting for the whole turn to finish.
func handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	provider, err := req.provider()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	it, err := provider.Stream(r.Context(), req.toLLMRequest())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer it.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, canFlush := w.(http.Flusher)

	enc := json.NewEncoder(w)
	for {
		snap, err := it.Next(r.Context())
		if err != nil {
			break
		}
		if err := enc.Encode(snap); err != nil {
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}
