package anthropic

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

var (
	cache5mWriteRatio = decimal.RequireFromString("1.25")
	cache1hWriteRatio = decimal.RequireFromString("2")
	cacheReadRatio    = decimal.RequireFromString("0.1")
)

// Cost is an amount in US dollars split by token kind. The same shape holds
// a model's price per token and the cost of a call. The zero value is a zero
// cost and the identity of Add.
type Cost struct {
	InputTokens        decimal.Decimal
	OutputTokens       decimal.Decimal
	Cache5mWriteTokens decimal.Decimal
	Cache1hWriteTokens decimal.Decimal
	CacheReadTokens    decimal.Decimal
}

// PricePerMillion builds a per-token price from dollars per million input
// and output tokens. Cache prices follow the API's multipliers of the input
// price: 1.25 for five minute writes, 2 for one hour writes and 0.1 for
// reads. It panics on a malformed amount.
func PricePerMillion(input, output string) Cost {
	in := decimal.RequireFromString(input).Shift(-6)
	return Cost{
		InputTokens:        in,
		OutputTokens:       decimal.RequireFromString(output).Shift(-6),
		Cache5mWriteTokens: in.Mul(cache5mWriteRatio),
		Cache1hWriteTokens: in.Mul(cache1hWriteRatio),
		CacheReadTokens:    in.Mul(cacheReadRatio),
	}
}

// Add returns the sum of c and o.
func (c Cost) Add(o Cost) Cost {
	return Cost{
		InputTokens:        c.InputTokens.Add(o.InputTokens),
		OutputTokens:       c.OutputTokens.Add(o.OutputTokens),
		Cache5mWriteTokens: c.Cache5mWriteTokens.Add(o.Cache5mWriteTokens),
		Cache1hWriteTokens: c.Cache1hWriteTokens.Add(o.Cache1hWriteTokens),
		CacheReadTokens:    c.CacheReadTokens.Add(o.CacheReadTokens),
	}
}

// CacheWriteTokens is the cost of both cache write durations.
func (c Cost) CacheWriteTokens() decimal.Decimal {
	return c.Cache5mWriteTokens.Add(c.Cache1hWriteTokens)
}

// Total is the sum of every part.
func (c Cost) Total() decimal.Decimal {
	return c.InputTokens.
		Add(c.OutputTokens).
		Add(c.CacheWriteTokens()).
		Add(c.CacheReadTokens)
}

// IsZero reports whether every part is zero.
func (c Cost) IsZero() bool {
	return c.Total().IsZero()
}

// Cost prices u with the per-token price. Cache writes are split by the
// "cache_creation" breakdown when the API sends one and are otherwise
// charged at the five minute rate.
func (u Usage) Cost(price Cost) Cost {
	write5m, write1h := u.cacheWrites()
	var read int
	if u.CacheReadInputTokens != nil {
		read = *u.CacheReadInputTokens
	}
	return Cost{
		InputTokens:        price.InputTokens.Mul(decimal.NewFromInt(int64(u.InputTokens))),
		OutputTokens:       price.OutputTokens.Mul(decimal.NewFromInt(int64(u.OutputTokens))),
		Cache5mWriteTokens: price.Cache5mWriteTokens.Mul(decimal.NewFromInt(int64(write5m))),
		Cache1hWriteTokens: price.Cache1hWriteTokens.Mul(decimal.NewFromInt(int64(write1h))),
		CacheReadTokens:    price.CacheReadTokens.Mul(decimal.NewFromInt(int64(read))),
	}
}

func (u Usage) cacheWrites() (fiveMinutes, oneHour int) {
	if raw, ok := u.Extra.Get("cache_creation"); ok {
		breakdown := gjson.ParseBytes(raw)
		if breakdown.IsObject() {
			return int(breakdown.Get("ephemeral_5m_input_tokens").Int()),
				int(breakdown.Get("ephemeral_1h_input_tokens").Int())
		}
	}
	if u.CacheCreationInputTokens != nil {
		return *u.CacheCreationInputTokens, 0
	}
	return 0, 0
}
