package llm

import (
	"encoding/json"
	"time"

	"github.com/harborwave/llmkit/pkg/value"
)

// FinishReason is the unified completion-reason enumeration every provider's
// native code is mapped onto at ingress.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishMaxTokens      FinishReason = "maxTokens"
	FinishToolUse        FinishReason = "toolUse"
	FinishContentFilter  FinishReason = "contentFilter"
	FinishOther          FinishReason = "other"
)

// Metadata carries response-level bookkeeping: identity, model, token
// accounting, and the unified finish reason.
type Metadata struct {
	ResponseID               string
	Model                    string
	CreatedAt                *time.Time
	FinishReason             FinishReason
	InputTokens              *int
	OutputTokens             *int
	TotalTokens              *int
	CacheCreationInputTokens *int
	CacheReadInputTokens     *int
	ReasoningTokens          *int
}

// Texts holds the three output channels an assembler accumulates: the
// user-visible response, the model's surfaced reasoning/thinking, and
// supplementary notes (e.g. rendered grounding citations).
type Texts struct {
	Reasoning string
	Response  string
	Notes     string
}

// GenerationResponse is the snapshot every provider assembler (C6-C9)
// incrementally builds and the orchestrator (C10) yields to the caller.
// Within one streaming turn, Texts.Response and Texts.Reasoning are
// monotonically non-shrinking across successive snapshots, and ToolCalls
// only grows or has its Parameters filled in further — see law 2 in
// spec §8.
type GenerationResponse struct {
	Texts     Texts
	ToolCalls []ToolCall
	Metadata  *Metadata
}

// MarshalJSON implements json.Marshaler by building an intermediate
// pkg/value.Value tree and delegating to its canonical encoder, so a
// caller can persist or transmit a snapshot without this package owning
// any storage concern itself.
func (r GenerationResponse) MarshalJSON() ([]byte, error) {
	return r.toValue().MarshalJSON()
}

func (r GenerationResponse) toValue() value.Value {
	out := value.Object()

	texts := value.Object().
		Set("reasoning", value.String(r.Texts.Reasoning)).
		Set("response", value.String(r.Texts.Response)).
		Set("notes", value.String(r.Texts.Notes))
	out = out.Set("texts", texts)

	calls := make([]value.Value, len(r.ToolCalls))
	for i, tc := range r.ToolCalls {
		params := value.Object()
		for k, v := range tc.Parameters {
			params = params.Set(k, value.FromAny(v))
		}
		cv := value.Object().
			Set("name", value.String(tc.Name)).
			Set("id", value.String(tc.ID)).
			Set("parameters", params)
		if len(tc.ProviderMetadata) > 0 {
			cv = cv.Set("providerMetadata", value.FromAny(tc.ProviderMetadata))
		}
		calls[i] = cv
	}
	out = out.Set("toolCalls", value.Array(calls...))

	if r.Metadata != nil {
		out = out.Set("metadata", metadataToValue(*r.Metadata))
	}
	return out
}

func metadataToValue(m Metadata) value.Value {
	v := value.Object()
	if m.ResponseID != "" {
		v = v.Set("responseId", value.String(m.ResponseID))
	}
	if m.Model != "" {
		v = v.Set("model", value.String(m.Model))
	}
	if m.CreatedAt != nil {
		v = v.Set("createdAt", value.String(m.CreatedAt.Format(time.RFC3339)))
	}
	if m.FinishReason != "" {
		v = v.Set("finishReason", value.String(string(m.FinishReason)))
	}
	setIntPtr(&v, "inputTokens", m.InputTokens)
	setIntPtr(&v, "outputTokens", m.OutputTokens)
	setIntPtr(&v, "totalTokens", m.TotalTokens)
	setIntPtr(&v, "cacheCreationInputTokens", m.CacheCreationInputTokens)
	setIntPtr(&v, "cacheReadInputTokens", m.CacheReadInputTokens)
	setIntPtr(&v, "reasoningTokens", m.ReasoningTokens)
	return v
}

func setIntPtr(v *value.Value, key string, p *int) {
	if p != nil {
		*v = v.Set(key, value.Int(int64(*p)))
	}
}

// UnmarshalJSON implements json.Unmarshaler, decoding through
// pkg/value.Value so the wire round-trip and the in-memory round-trip share
// one coercion path.
func (r *GenerationResponse) UnmarshalJSON(b []byte) error {
	var v value.Value
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = fromValue(v)
	return nil
}

func fromValue(v value.Value) GenerationResponse {
	var r GenerationResponse

	if texts, ok := v.Get("texts"); ok {
		if s, ok := get(texts, "reasoning").ToStringCoerced(false); ok {
			r.Texts.Reasoning = s
		}
		if s, ok := get(texts, "response").ToStringCoerced(false); ok {
			r.Texts.Response = s
		}
		if s, ok := get(texts, "notes").ToStringCoerced(false); ok {
			r.Texts.Notes = s
		}
	}

	if calls, ok := v.Get("toolCalls"); ok {
		for _, cv := range calls.Items() {
			tc := ToolCall{}
			if s, ok := get(cv, "name").ToStringCoerced(false); ok {
				tc.Name = s
			}
			if s, ok := get(cv, "id").ToStringCoerced(false); ok {
				tc.ID = s
			}
			if params, ok := cv.Get("parameters"); ok {
				tc.Parameters = params.ToMap()
			}
			if pm, ok := cv.Get("providerMetadata"); ok {
				tc.ProviderMetadata = pm.ToMap()
			}
			r.ToolCalls = append(r.ToolCalls, tc)
		}
	}

	if mv, ok := v.Get("metadata"); ok {
		m := Metadata{}
		if s, ok := get(mv, "responseId").ToStringCoerced(false); ok {
			m.ResponseID = s
		}
		if s, ok := get(mv, "model").ToStringCoerced(false); ok {
			m.Model = s
		}
		if s, ok := get(mv, "createdAt").ToStringCoerced(false); ok {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				m.CreatedAt = &t
			}
		}
		if s, ok := get(mv, "finishReason").ToStringCoerced(false); ok {
			m.FinishReason = FinishReason(s)
		}
		m.InputTokens = intPtr(mv, "inputTokens")
		m.OutputTokens = intPtr(mv, "outputTokens")
		m.TotalTokens = intPtr(mv, "totalTokens")
		m.CacheCreationInputTokens = intPtr(mv, "cacheCreationInputTokens")
		m.CacheReadInputTokens = intPtr(mv, "cacheReadInputTokens")
		m.ReasoningTokens = intPtr(mv, "reasoningTokens")
		r.Metadata = &m
	}

	return r
}

func get(v value.Value, key string) value.Value {
	f, ok := v.Get(key)
	if !ok {
		return value.Null()
	}
	return f
}

func intPtr(v value.Value, key string) *int {
	f, ok := v.Get(key)
	if !ok {
		return nil
	}
	i, ok := f.ToInt(false)
	if !ok {
		return nil
	}
	n := int(i)
	return &n
}

// MapFinishReason maps provider-native finish/stop reason strings onto the
// unified enumeration. table is the provider-specific native->unified map;
// any key not present falls back to FinishOther.
func MapFinishReason(native string, table map[string]FinishReason) FinishReason {
	if fr, ok := table[native]; ok {
		return fr
	}
	return FinishOther
}
