package agentregistry

// ModelCosts is the per-base_model rate card used to compute invoke-time
// expense from an estimated token count (spec.md §4.5 step 6).
type ModelCosts struct {
	CreateResource float64
	CreateExpense  float64
	// InvokeResourceFlat is charged once per Ask call regardless of length.
	InvokeResourceFlat float64
	// InvokeExpensePerMillionTokens scales with len(words)/1_000_000, applied
	// to both the prompt and the reply.
	InvokeExpensePerMillionTokens float64
}

// CostCatalog is a supplemented feature (SPEC_FULL.md §4 item 3): the
// Python original hardcodes per-agent costs inline; this catalog lets rates
// be looked up by base_model and overridden without touching registry
// logic, while still defaulting to the original's numbers for the models it
// names.
type CostCatalog struct {
	rates map[string]ModelCosts
}

// DefaultCostCatalog seeds rates for every base_model the spec and the
// original implementation name.
func DefaultCostCatalog() *CostCatalog {
	return &CostCatalog{
		rates: map[string]ModelCosts{
			"llama3.2":                          {CreateResource: 5, InvokeResourceFlat: 1},
			"mistral":                           {CreateResource: 6, InvokeResourceFlat: 1},
			"deepseek-r1":                       {CreateResource: 8, InvokeResourceFlat: 1},
			"gemini-2.5-pro":                    {CreateResource: 2, CreateExpense: 0, InvokeResourceFlat: 0, InvokeExpensePerMillionTokens: 1.25},
			"gemini-2.5-flash":                  {CreateResource: 1, CreateExpense: 0, InvokeResourceFlat: 0, InvokeExpensePerMillionTokens: 0.30},
			"groq/llama-3.3-70b-versatile":      {CreateResource: 1, CreateExpense: 0, InvokeResourceFlat: 0, InvokeExpensePerMillionTokens: 0.59},
		},
	}
}

// Lookup returns the cost rates for baseModel, or a conservative zero-value
// default if the model isn't in the catalog.
func (c *CostCatalog) Lookup(baseModel string) ModelCosts {
	if rates, ok := c.rates[baseModel]; ok {
		return rates
	}
	return ModelCosts{}
}

// Set overrides or adds a rate entry, used by configuration loading.
func (c *CostCatalog) Set(baseModel string, costs ModelCosts) {
	c.rates[baseModel] = costs
}

// Entries returns every base_model → rate mapping in the catalog, the
// static table the AgentCostManager built-in hands to the manager model so
// it can pick a model before calling AgentCreator (spec.md §4.4
// AgentCostManager).
func (c *CostCatalog) Entries() map[string]ModelCosts {
	out := make(map[string]ModelCosts, len(c.rates))
	for k, v := range c.rates {
		out[k] = v
	}
	return out
}
