package anthropic

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

const (
	CitationTypeCharLocation            = "char_location"
	CitationTypePageLocation            = "page_location"
	CitationTypeContentBlockLocation    = "content_block_location"
	CitationTypeWebSearchResultLocation = "web_search_result_location"
)

// Citation links a span of generated text back to the source it came from.
type Citation interface {
	GetType() string
	isCitation()
}

// CitationsConfig enables citations on a document or a web fetch tool.
type CitationsConfig struct {
	Enabled bool `json:"enabled"`
}

// CharLocation cites a plain text document by character offsets.
type CharLocation struct {
	CitedText      string  `json:"cited_text"`
	DocumentIndex  int     `json:"document_index"`
	DocumentTitle  *string `json:"document_title,omitempty"`
	StartCharIndex int     `json:"start_char_index"`
	EndCharIndex   int     `json:"end_char_index"`
}

func (CharLocation) GetType() string { return CitationTypeCharLocation }
func (CharLocation) isCitation()     {}

func (c CharLocation) MarshalJSON() ([]byte, error) {
	type alias CharLocation
	return encodeObject(CitationTypeCharLocation, alias(c), Properties{})
}

// PageLocation cites a PDF by page numbers. Pages are 1-indexed and the end
// page is exclusive.
type PageLocation struct {
	CitedText       string  `json:"cited_text"`
	DocumentIndex   int     `json:"document_index"`
	DocumentTitle   *string `json:"document_title,omitempty"`
	StartPageNumber int     `json:"start_page_number"`
	EndPageNumber   int     `json:"end_page_number"`
}

func (PageLocation) GetType() string { return CitationTypePageLocation }
func (PageLocation) isCitation()     {}

func (c PageLocation) MarshalJSON() ([]byte, error) {
	type alias PageLocation
	return encodeObject(CitationTypePageLocation, alias(c), Properties{})
}

// ContentBlockLocation cites a custom content document by block index.
type ContentBlockLocation struct {
	CitedText       string  `json:"cited_text"`
	DocumentIndex   int     `json:"document_index"`
	DocumentTitle   *string `json:"document_title,omitempty"`
	StartBlockIndex int     `json:"start_block_index"`
	EndBlockIndex   int     `json:"end_block_index"`
}

func (ContentBlockLocation) GetType() string { return CitationTypeContentBlockLocation }
func (ContentBlockLocation) isCitation()     {}

func (c ContentBlockLocation) MarshalJSON() ([]byte, error) {
	type alias ContentBlockLocation
	return encodeObject(CitationTypeContentBlockLocation, alias(c), Properties{})
}

// WebSearchResultLocation cites a web search result. EncryptedIndex must be
// sent back unchanged in follow-up turns.
type WebSearchResultLocation struct {
	CitedText      string `json:"cited_text"`
	URL            string `json:"url"`
	Title          string `json:"title"`
	EncryptedIndex string `json:"encrypted_index"`
}

func (WebSearchResultLocation) GetType() string { return CitationTypeWebSearchResultLocation }
func (WebSearchResultLocation) isCitation()     {}

func (c WebSearchResultLocation) MarshalJSON() ([]byte, error) {
	type alias WebSearchResultLocation
	return encodeObject(CitationTypeWebSearchResultLocation, alias(c), Properties{})
}

// UnknownCitation keeps a citation kind this version does not recognise.
type UnknownCitation struct {
	Type  string     `json:"type,omitempty"`
	Extra Properties `json:"-"`
}

func (c UnknownCitation) GetType() string { return c.Type }
func (UnknownCitation) isCitation()       {}

func (c UnknownCitation) MarshalJSON() ([]byte, error) {
	type alias UnknownCitation
	return encodeObject("", alias(c), c.Extra)
}

func (c *UnknownCitation) UnmarshalJSON(data []byte) error {
	type alias UnknownCitation
	var a alias
	extra, err := decodeOpen(data, &a)
	if err != nil {
		return err
	}
	a.Extra = extra
	*c = UnknownCitation(a)
	return nil
}

// DecodeCitation decodes a single citation object.
func DecodeCitation(data []byte) (Citation, error) {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, &DecodeError{Kind: "citation", Raw: string(data), Err: fmt.Errorf("not a JSON object")}
	}
	typ := gjson.GetBytes(data, "type").String()

	var (
		c   Citation
		err error
	)
	switch typ {
	case CitationTypeCharLocation:
		c, err = decodeCitationAs[CharLocation](data)
	case CitationTypePageLocation:
		c, err = decodeCitationAs[PageLocation](data)
	case CitationTypeContentBlockLocation:
		c, err = decodeCitationAs[ContentBlockLocation](data)
	case CitationTypeWebSearchResultLocation:
		c, err = decodeCitationAs[WebSearchResultLocation](data)
	default:
		c, err = decodeCitationAs[UnknownCitation](data)
	}
	if err != nil {
		return nil, &DecodeError{Kind: "citation", Type: typ, Raw: string(data), Err: err}
	}
	return c, nil
}

func decodeCitationAs[T Citation](data []byte) (Citation, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Citations is a list of citations attached to a text block.
type Citations []Citation

func (cs *Citations) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Citations, 0, len(raws))
	for _, raw := range raws {
		c, err := DecodeCitation(raw)
		if err != nil {
			return err
		}
		out = append(out, c)
	}
	*cs = out
	return nil
}
