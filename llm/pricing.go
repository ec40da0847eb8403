package llm

import (
	"fmt"
	"sort"
	"strings"
)

// ModelInfo is descriptive metadata for a known model: context window
// size and USD pricing per one million tokens.
type ModelInfo struct {
	ID              string  `json:"id"`
	MaxContext      int     `json:"max_context"`
	InputCostPer1M  float64 `json:"input_cost_per_1m"`
	OutputCostPer1M float64 `json:"output_cost_per_1m"`
	SupportsVision  bool    `json:"supports_vision"`
}

// Catalog maps model identifiers to their metadata and pricing. The
// default catalog covers the models this client is commonly pointed at;
// callers with custom deployments can extend it per client.
type Catalog struct {
	models map[string]ModelInfo
}

// DefaultCatalog returns a catalog seeded with well-known models.
func DefaultCatalog() *Catalog {
	c := &Catalog{models: make(map[string]ModelInfo)}
	for _, m := range []ModelInfo{
		{ID: "gpt-3.5-turbo", MaxContext: 16385, InputCostPer1M: 0.50, OutputCostPer1M: 1.50},
		{ID: "gpt-4", MaxContext: 8192, InputCostPer1M: 30.00, OutputCostPer1M: 60.00},
		{ID: "gpt-4-turbo", MaxContext: 128000, InputCostPer1M: 10.00, OutputCostPer1M: 30.00, SupportsVision: true},
		{ID: "gpt-4o", MaxContext: 128000, InputCostPer1M: 2.50, OutputCostPer1M: 10.00, SupportsVision: true},
		{ID: "gpt-4o-mini", MaxContext: 128000, InputCostPer1M: 0.15, OutputCostPer1M: 0.60, SupportsVision: true},
		{ID: "o1", MaxContext: 200000, InputCostPer1M: 15.00, OutputCostPer1M: 60.00},
		{ID: "o1-mini", MaxContext: 128000, InputCostPer1M: 1.10, OutputCostPer1M: 4.40},
	} {
		c.models[m.ID] = m
	}
	return c
}

// Register adds or replaces a catalog entry.
func (c *Catalog) Register(info ModelInfo) {
	c.models[info.ID] = info
}

// Models returns every catalog entry ordered by model ID.
func (c *Catalog) Models() []ModelInfo {
	out := make([]ModelInfo, 0, len(c.models))
	for _, m := range c.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup returns metadata for the given model. Provider routing tags
// ("azure/<model>") are stripped before the lookup.
func (c *Catalog) Lookup(model string) (ModelInfo, bool) {
	info, ok := c.models[baseModel(model)]
	return info, ok
}

// Cost derives the USD cost of one call from its token usage. Unknown
// models return an error; the caller decides whether that is fatal
// (for cost tracking it never is).
func (c *Catalog) Cost(model string, usage Usage) (float64, error) {
	info, ok := c.models[baseModel(model)]
	if !ok {
		return 0, fmt.Errorf("no pricing for model %q", model)
	}
	in := float64(usage.PromptTokens) * info.InputCostPer1M / 1e6
	out := float64(usage.CompletionTokens) * info.OutputCostPer1M / 1e6
	return in + out, nil
}

// EstimateTokens approximates the token count of a message sequence.
// It uses the rough 4-characters-per-token heuristic plus a small
// per-message framing overhead; good enough for context budgeting,
// not for billing.
func EstimateTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		chars := len(m.Content)
		for _, p := range m.Parts {
			chars += len(p.Text)
		}
		for _, tc := range m.ToolCalls {
			chars += len(tc.Name) + len(tc.Arguments)
		}
		total += chars/4 + 4
	}
	return total
}

// baseModel strips a provider routing prefix such as "azure/".
func baseModel(model string) string {
	if i := strings.IndexByte(model, '/'); i >= 0 {
		return model[i+1:]
	}
	return model
}
