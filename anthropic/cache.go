package anthropic

// CacheControlEphemeral is the only cache type the API currently defines.
const CacheControlEphemeral = "ephemeral"

// CacheControl marks a prompt prefix as cacheable. Types the library does not
// know about are kept as-is, with their members in Extra.
type CacheControl struct {
	Type  string     `json:"type"`
	TTL   string     `json:"ttl,omitempty"`
	Extra Properties `json:"-"`
}

// Ephemeral returns the default cache control hint. An optional ttl such as
// "5m" or "1h" may be supplied.
func Ephemeral(ttl ...string) *CacheControl {
	cc := &CacheControl{Type: CacheControlEphemeral}
	if len(ttl) > 0 {
		cc.TTL = ttl[0]
	}
	return cc
}

func (c CacheControl) MarshalJSON() ([]byte, error) {
	type alias CacheControl
	return encodeObject("", alias(c), c.Extra)
}

func (c *CacheControl) UnmarshalJSON(data []byte) error {
	type alias CacheControl
	var a alias
	extra, err := decodeOpen(data, &a)
	if err != nil {
		return err
	}
	a.Extra = extra
	*c = CacheControl(a)
	return nil
}

// UserLocation narrows web search results to a region.
type UserLocation struct {
	Type     string     `json:"type"`
	City     string     `json:"city,omitempty"`
	Region   string     `json:"region,omitempty"`
	Country  string     `json:"country,omitempty"`
	Timezone string     `json:"timezone,omitempty"`
	Extra    Properties `json:"-"`
}

// ApproximateLocation builds the "approximate" user location the web search
// tool accepts.
func ApproximateLocation(city, region, country, timezone string) *UserLocation {
	return &UserLocation{
		Type:     "approximate",
		City:     city,
		Region:   region,
		Country:  country,
		Timezone: timezone,
	}
}

func (u UserLocation) MarshalJSON() ([]byte, error) {
	type alias UserLocation
	return encodeObject("", alias(u), u.Extra)
}

func (u *UserLocation) UnmarshalJSON(data []byte) error {
	type alias UserLocation
	var a alias
	extra, err := decodeOpen(data, &a)
	if err != nil {
		return err
	}
	a.Extra = extra
	*u = UserLocation(a)
	return nil
}
