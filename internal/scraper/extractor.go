package scraper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HiBid renders with Angular plus Apollo GraphQL. The SSR response embeds the
// Apollo cache as JSON inside <script id="hibid-state">, under the
// "apollo.state" field of the document.
const (
	stateScriptSelector = `script#hibid-state`
	stateField          = "apollo.state"
)

// ExtractState locates the embedded state block in html and returns the
// normalized cache it carries. Failures distinguish a missing block
// (ErrStateMissing) from unparseable JSON (ErrStateMalformed); callers treat
// both as end-of-data for the page.
func ExtractState(html string) (NormalizedCache, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateMalformed, err)
	}

	sel := doc.Find(stateScriptSelector)
	if sel.Length() == 0 {
		return nil, ErrStateMissing
	}

	raw := strings.TrimSpace(sel.First().Text())
	if raw == "" {
		return nil, ErrStateMissing
	}
	return parseCache([]byte(raw))
}

// parseCache decodes the state document and builds the typed entity cache.
// Numbers are kept as json.Number so numeric IDs round-trip without float
// formatting artifacts.
func parseCache(raw []byte) (NormalizedCache, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateMalformed, err)
	}

	state, ok := doc[stateField].(map[string]any)
	if !ok || len(state) == 0 {
		return nil, ErrStateMissing
	}

	cache := make(NormalizedCache, len(state))
	for k, v := range state {
		fields, ok := v.(map[string]any)
		if !ok {
			// Scalar bookkeeping entries are not entities.
			continue
		}
		key := EntityKey(k)
		cache[key] = Entity{Key: key, Kind: kindOf(key, fields), Fields: fields}
	}
	return cache, nil
}

// kindOf tags an entity by its __typename, falling back to the key prefix.
// Anything unrecognized stays as a passthrough KindUnknown entity.
func kindOf(key EntityKey, fields map[string]any) EntityKind {
	tag, _ := fields[typenameField].(string)
	if tag == "" {
		tag = key.TypeTag()
	}
	switch tag {
	case string(KindAuction):
		return KindAuction
	case string(KindLot):
		return KindLot
	case string(KindLotState):
		return KindLotState
	default:
		return KindUnknown
	}
}
