package anthropic

// Model describes a model the API serves and what it costs per token.
type Model struct {
	ID                string
	ContextWindow     int
	MaxOutput         int
	MessageBatchesAPI bool
	Price             Cost
}

// Models is the catalog of known models. Dated ids and their "-latest"
// aliases are listed separately because responses report the dated id.
var Models = []Model{
	{ID: "claude-opus-4-20250514", ContextWindow: 200000, MaxOutput: 32000, MessageBatchesAPI: true, Price: PricePerMillion("15", "75")},
	{ID: "claude-sonnet-4-20250514", ContextWindow: 200000, MaxOutput: 64000, MessageBatchesAPI: true, Price: PricePerMillion("3", "15")},
	{ID: "claude-3-7-sonnet-latest", ContextWindow: 200000, MaxOutput: 64000, MessageBatchesAPI: true, Price: PricePerMillion("3", "15")},
	{ID: "claude-3-7-sonnet-20250219", ContextWindow: 200000, MaxOutput: 64000, MessageBatchesAPI: true, Price: PricePerMillion("3", "15")},
	{ID: "claude-3-5-sonnet-latest", ContextWindow: 200000, MaxOutput: 8192, MessageBatchesAPI: true, Price: PricePerMillion("3", "15")},
	{ID: "claude-3-5-sonnet-20241022", ContextWindow: 200000, MaxOutput: 8192, MessageBatchesAPI: true, Price: PricePerMillion("3", "15")},
	{ID: "claude-3-5-sonnet-20240620", ContextWindow: 200000, MaxOutput: 8192, MessageBatchesAPI: true, Price: PricePerMillion("3", "15")},
	{ID: "claude-3-5-haiku-latest", ContextWindow: 200000, MaxOutput: 8192, MessageBatchesAPI: true, Price: PricePerMillion("0.80", "4")},
	{ID: "claude-3-5-haiku-20241022", ContextWindow: 200000, MaxOutput: 8192, MessageBatchesAPI: true, Price: PricePerMillion("0.80", "4")},
	{ID: "claude-3-opus-latest", ContextWindow: 200000, MaxOutput: 4096, MessageBatchesAPI: true, Price: PricePerMillion("15", "75")},
	{ID: "claude-3-opus-20240229", ContextWindow: 200000, MaxOutput: 4096, MessageBatchesAPI: true, Price: PricePerMillion("15", "75")},
	{ID: "claude-3-sonnet-20240229", ContextWindow: 200000, MaxOutput: 4096, MessageBatchesAPI: true, Price: PricePerMillion("3", "15")},
	{ID: "claude-3-haiku-20240307", ContextWindow: 200000, MaxOutput: 4096, MessageBatchesAPI: true, Price: PricePerMillion("0.25", "1.25")},
}

var modelsByID = func() map[string]Model {
	m := make(map[string]Model, len(Models))
	for _, model := range Models {
		m[model.ID] = model
	}
	return m
}()

// LookupModel finds a model in the catalog by id.
func LookupModel(id string) (Model, bool) {
	m, ok := modelsByID[id]
	return m, ok
}
