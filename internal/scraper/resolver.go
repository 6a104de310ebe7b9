package scraper

import (
	"encoding/json"
	"strconv"
	"strings"
)

// itemIDFields are the candidate identifier attributes, in priority order.
var itemIDFields = []string{"id", "itemId", "eventItemId"}

// ResolveLots hydrates every Lot entity in cache: auction and lot-state
// references are inlined when their target exists in the same snapshot, and
// retained as raw refs otherwise. Lots with no derivable identifier are
// dropped; their count is returned so the caller can tally them as errors.
//
// Iteration follows cache order; no ordering is guaranteed.
func ResolveLots(cache NormalizedCache) ([]Lot, int) {
	auctions := indexAuctions(cache)

	var lots []Lot
	skipped := 0
	for key, ent := range cache {
		if ent.Kind != KindLot {
			continue
		}

		fields := make(map[string]any, len(ent.Fields)+2)
		for k, v := range ent.Fields {
			fields[k] = v
		}

		inlineAuction(fields, auctions)
		inlineLotState(fields, cache)

		id := deriveItemID(key, fields)
		if id == "" {
			skipped++
			continue
		}
		lots = append(lots, Lot{ItemID: id, Fields: fields})
	}
	return lots, skipped
}

// indexAuctions builds the auction lookup keyed by both the raw cache key and
// the normalized "Auction:<id>" form, since references use either convention.
func indexAuctions(cache NormalizedCache) map[EntityKey]map[string]any {
	auctions := make(map[EntityKey]map[string]any)
	for key, ent := range cache {
		if ent.Kind != KindAuction {
			continue
		}
		auctions[key] = ent.Fields

		id := key.RawID()
		if key.TypeTag() != string(KindAuction) || id == "" {
			id = stringifyID(ent.Fields["id"])
		}
		if id != "" {
			auctions[EntityKey(string(KindAuction)+":"+id)] = ent.Fields
		}
	}
	return auctions
}

// inlineAuction replaces a reference-valued auction attribute: the target
// record is inlined under auction_data when resolvable, and the raw ref key
// is always preserved under auction_ref.
func inlineAuction(fields map[string]any, auctions map[EntityKey]map[string]any) {
	ref, ok := refTarget(fields[auctionField])
	if !ok {
		return
	}
	if target, found := auctions[ref]; found {
		fields[auctionDataField] = target
	}
	fields[auctionRefField] = string(ref)
	delete(fields, auctionField)
}

// inlineLotState does the same for the lotState relation, resolved against
// the entire cache rather than just auctions.
func inlineLotState(fields map[string]any, cache NormalizedCache) {
	ref, ok := refTarget(fields[lotStateField])
	if !ok {
		return
	}
	if target, found := cache[ref]; found {
		fields[lotStateDataField] = target.Fields
	}
	fields[lotStateRefField] = string(ref)
	delete(fields, lotStateField)
}

// deriveItemID picks the canonical identifier by field priority, falling back
// to a composite of the key's type tag and raw id. Empty means the lot is
// unusable.
func deriveItemID(key EntityKey, fields map[string]any) string {
	for _, f := range itemIDFields {
		if id := stringifyID(fields[f]); id != "" {
			return id
		}
	}
	if raw := key.RawID(); raw != "" {
		return strings.ToLower(key.TypeTag()) + "-" + raw
	}
	return ""
}

// stringifyID renders an identifier value as a string. Caches built by
// parseCache carry json.Number, but hand-assembled values are handled too.
func stringifyID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		return id.String()
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}
