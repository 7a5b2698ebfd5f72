package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

const (
	SourceTypeBase64 = "base64"
	SourceTypeURL    = "url"
	SourceTypeText   = "text"
)

// Source is the payload behind an Image or Document block. It is one of
// Base64Source, URLSource, TextSource or UnknownSource.
type Source interface {
	GetType() string
	Validate() error
	isSource()
}

type Base64Source struct {
	MediaType MediaType  `json:"media_type"`
	Data      string     `json:"data"`
	Extra     Properties `json:"-"`
}

func (Base64Source) GetType() string { return SourceTypeBase64 }
func (Base64Source) isSource()       {}

func (s Base64Source) Validate() error {
	if err := required(SourceTypeBase64, "media_type", s.MediaType == ""); err != nil {
		return err
	}
	return required(SourceTypeBase64, "data", s.Data == "")
}

func (s Base64Source) MarshalJSON() ([]byte, error) {
	type alias Base64Source
	return encodeObject(SourceTypeBase64, alias(s), s.Extra)
}

func (s *Base64Source) UnmarshalJSON(data []byte) error {
	type alias Base64Source
	var a alias
	extra, err := decodeOpen(data, &a)
	if err != nil {
		return err
	}
	a.Extra = extra
	*s = Base64Source(a)
	return nil
}

type URLSource struct {
	URL   string     `json:"url"`
	Extra Properties `json:"-"`
}

func (URLSource) GetType() string { return SourceTypeURL }
func (URLSource) isSource()       {}

func (s URLSource) Validate() error {
	return required(SourceTypeURL, "url", s.URL == "")
}

func (s URLSource) MarshalJSON() ([]byte, error) {
	type alias URLSource
	return encodeObject(SourceTypeURL, alias(s), s.Extra)
}

func (s *URLSource) UnmarshalJSON(data []byte) error {
	type alias URLSource
	var a alias
	extra, err := decodeOpen(data, &a)
	if err != nil {
		return err
	}
	a.Extra = extra
	*s = URLSource(a)
	return nil
}

type TextSource struct {
	MediaType MediaType  `json:"media_type"`
	Data      string     `json:"data"`
	Extra     Properties `json:"-"`
}

func (TextSource) GetType() string { return SourceTypeText }
func (TextSource) isSource()       {}

func (s TextSource) Validate() error {
	return required(SourceTypeText, "media_type", s.MediaType == "")
}

func (s TextSource) MarshalJSON() ([]byte, error) {
	type alias TextSource
	return encodeObject(SourceTypeText, alias(s), s.Extra)
}

func (s *TextSource) UnmarshalJSON(data []byte) error {
	type alias TextSource
	var a alias
	extra, err := decodeOpen(data, &a)
	if err != nil {
		return err
	}
	a.Extra = extra
	*s = TextSource(a)
	return nil
}

// UnknownSource keeps a source kind this version does not recognise.
type UnknownSource struct {
	Type  string     `json:"type,omitempty"`
	Extra Properties `json:"-"`
}

func (s UnknownSource) GetType() string { return s.Type }
func (UnknownSource) isSource()         {}
func (UnknownSource) Validate() error   { return nil }

func (s UnknownSource) MarshalJSON() ([]byte, error) {
	type alias UnknownSource
	return encodeObject("", alias(s), s.Extra)
}

func (s *UnknownSource) UnmarshalJSON(data []byte) error {
	type alias UnknownSource
	var a alias
	extra, err := decodeOpen(data, &a)
	if err != nil {
		return err
	}
	a.Extra = extra
	*s = UnknownSource(a)
	return nil
}

// DecodeSource decodes a source object, falling back to UnknownSource for an
// unrecognised type.
func DecodeSource(data []byte) (Source, error) {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, &DecodeError{Kind: "source", Raw: string(data), Err: fmt.Errorf("not a JSON object")}
	}
	typ := gjson.GetBytes(data, "type").String()

	var (
		src Source
		err error
	)
	switch typ {
	case SourceTypeBase64:
		var s Base64Source
		err = json.Unmarshal(data, &s)
		src = s
	case SourceTypeURL:
		var s URLSource
		err = json.Unmarshal(data, &s)
		src = s
	case SourceTypeText:
		var s TextSource
		err = json.Unmarshal(data, &s)
		src = s
	default:
		var s UnknownSource
		err = json.Unmarshal(data, &s)
		src = s
	}
	if err != nil {
		return nil, &DecodeError{Kind: "source", Type: typ, Raw: string(data), Err: err}
	}
	return src, nil
}
