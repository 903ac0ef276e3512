package interceptor

import (
	"bytes"
	"encoding/json"
	"regexp"

	"github.com/t86xu3/dcard-auto/internal/domain"
)

// productAPIPatterns matches the marketplace's product detail endpoints, with
// one or more version segments tolerated.
var productAPIPatterns = []*regexp.Regexp{
	regexp.MustCompile(`api/v\d+/item/get`),
	regexp.MustCompile(`api/v\d+/pdp/get_pc`),
	regexp.MustCompile(`api/v\d+/pdp/get`),
	regexp.MustCompile(`api/v\d+/item_detail`),
}

func isProductAPI(url string) bool {
	for _, pattern := range productAPIPatterns {
		if pattern.MatchString(url) {
			return true
		}
	}
	return false
}

// decodeBody parses a response body preserving numeric identifiers verbatim.
func decodeBody(body []byte) (domain.RawPayload, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	return domain.RawPayload(payload), nil
}

// extractFetch locates the nested product object using the strict precedence
// of the fetch path: data.item, then item, then data if it carries an
// identifier, then the body itself if it does.
func extractFetch(body domain.RawPayload) (domain.RawPayload, bool) {
	var item domain.RawPayload
	data := child(body, "data")
	switch {
	case child(data, "item") != nil:
		item = child(data, "item")
	case child(body, "item") != nil:
		item = child(body, "item")
	case hasItemID(data):
		item = data
	case hasItemID(body):
		item = body
	}

	if !hasItemID(item) {
		return nil, false
	}
	normalizeAliases(item)
	return item, true
}

// extractXHR keeps the historically looser precedence of the XHR path: data,
// then item, then the body, with the identifier check applied only after the
// pick. A data object without an identifier therefore wins over an otherwise
// valid body, and extraction yields nothing. extract_test.go pins this
// divergence from the fetch path.
func extractXHR(body domain.RawPayload) (domain.RawPayload, bool) {
	item := child(body, "data")
	if item == nil {
		item = child(body, "item")
	}
	if item == nil {
		item = body
	}

	if !hasItemID(item) {
		return nil, false
	}
	normalizeAliases(item)
	return item, true
}

// hasItemID reports whether any spelling of the item identifier is present.
func hasItemID(m domain.RawPayload) bool {
	if m == nil {
		return false
	}
	for _, key := range []string{"itemid", "item_id", "itemID"} {
		if v, ok := m[key]; ok && v != nil {
			if s, isStr := v.(string); isStr && s == "" {
				continue
			}
			return true
		}
	}
	return false
}

// normalizeAliases copies aliased identifier spellings onto the canonical
// keys so downstream code only ever reads itemid/shopid.
func normalizeAliases(m domain.RawPayload) {
	if m["itemid"] == nil {
		if v := firstOf(m, "item_id", "itemID"); v != nil {
			m["itemid"] = v
		}
	}
	if m["shopid"] == nil {
		if v := firstOf(m, "shop_id", "shopID"); v != nil {
			m["shopid"] = v
		}
	}
}

func firstOf(m domain.RawPayload, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func child(m domain.RawPayload, key string) domain.RawPayload {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(map[string]any); ok {
		return domain.RawPayload(v)
	}
	return nil
}
