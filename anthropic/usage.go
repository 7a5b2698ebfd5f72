package anthropic

import "sync"

// Usage counts the tokens billed for a call. Usage values form a monoid
// under Add with the zero value as identity. Members the API adds later are
// kept in Extra.
type Usage struct {
	InputTokens              int        `json:"input_tokens"`
	OutputTokens             int        `json:"output_tokens"`
	CacheCreationInputTokens *int       `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     *int       `json:"cache_read_input_tokens,omitempty"`
	Extra                    Properties `json:"-"`
}

func (u Usage) MarshalJSON() ([]byte, error) {
	type alias Usage
	return encodeObject("", alias(u), u.Extra)
}

func (u *Usage) UnmarshalJSON(data []byte) error {
	type alias Usage
	var a alias
	extra, err := decodeOpen(data, &a)
	if err != nil {
		return err
	}
	a.Extra = extra
	*u = Usage(a)
	return nil
}

// Add returns the sum of u and o. A cache counter stays absent only when it
// is absent on both sides. Extra is taken from the first operand that has any.
func (u Usage) Add(o Usage) Usage {
	out := Usage{
		InputTokens:              u.InputTokens + o.InputTokens,
		OutputTokens:             u.OutputTokens + o.OutputTokens,
		CacheCreationInputTokens: addOptional(u.CacheCreationInputTokens, o.CacheCreationInputTokens),
		CacheReadInputTokens:     addOptional(u.CacheReadInputTokens, o.CacheReadInputTokens),
		Extra:                    u.Extra,
	}
	if out.Extra.Len() == 0 {
		out.Extra = o.Extra
	}
	return out
}

// Total returns every input and output token counted, cache tokens included.
func (u Usage) Total() int {
	total := u.InputTokens + u.OutputTokens
	if u.CacheCreationInputTokens != nil {
		total += *u.CacheCreationInputTokens
	}
	if u.CacheReadInputTokens != nil {
		total += *u.CacheReadInputTokens
	}
	return total
}

func addOptional(a, b *int) *int {
	if a == nil && b == nil {
		return nil
	}
	var sum int
	if a != nil {
		sum += *a
	}
	if b != nil {
		sum += *b
	}
	return &sum
}

// UsageCollector accumulates usage and cost across calls. It is safe for
// concurrent use.
type UsageCollector struct {
	mu    sync.Mutex
	usage Usage
	cost  Cost
	calls int
}

// Add records the usage of one call made with model. Models missing from
// the catalog add tokens but no cost.
func (c *UsageCollector) Add(model string, u Usage) {
	var cost Cost
	if m, ok := LookupModel(model); ok {
		cost = u.Cost(m.Price)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage = c.usage.Add(u)
	c.cost = c.cost.Add(cost)
	c.calls++
}

// Usage returns the running total.
func (c *UsageCollector) Usage() Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// Cost returns the running cost.
func (c *UsageCollector) Cost() Cost {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cost
}

// Calls returns how many usages were added.
func (c *UsageCollector) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
