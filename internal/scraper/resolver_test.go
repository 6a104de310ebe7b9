package scraper

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// mustCache parses a raw apollo.state object the same way production code
// does, so field values carry json.Number like real extractions.
func mustCache(t *testing.T, state string) NormalizedCache {
	t.Helper()
	cache, err := parseCache([]byte(`{"apollo.state":` + state + `}`))
	require.NoError(t, err)
	return cache
}

func lotByID(t *testing.T, lots []Lot, id string) Lot {
	t.Helper()
	for _, lot := range lots {
		if lot.ItemID == id {
			return lot
		}
	}
	t.Fatalf("no lot with id %q in %+v", id, lots)
	return Lot{}
}

func TestResolveLotsInlinesAuction(t *testing.T) {
	t.Parallel()

	cache := mustCache(t, `{
		"Auction:1": {"__typename": "Auction", "eventName": "Spring Sale"},
		"Lot:100": {"__typename": "Lot", "id": "100", "auction": {"__ref": "Auction:1"}}
	}`)

	lots, skipped := ResolveLots(cache)
	require.Zero(t, skipped)
	require.Len(t, lots, 1)

	lot := lotByID(t, lots, "100")
	auction, ok := lot.Fields["auction_data"].(map[string]any)
	require.True(t, ok, "expected inlined auction record")
	require.Equal(t, "Spring Sale", auction["eventName"])
	require.Equal(t, "Auction:1", lot.Fields["auction_ref"])
	require.NotContains(t, lot.Fields, "auction", "raw reference attribute should be replaced")
}

func TestResolveLotsPreservesUnresolvedReference(t *testing.T) {
	t.Parallel()

	cache := mustCache(t, `{
		"Lot:200": {"__typename": "Lot", "id": "200", "auction": {"__ref": "Auction:missing"}}
	}`)

	lots, skipped := ResolveLots(cache)
	require.Zero(t, skipped)
	require.Len(t, lots, 1, "a lot must never be dropped for an unresolved reference")

	lot := lots[0]
	require.Equal(t, "Auction:missing", lot.Fields["auction_ref"])
	require.NotContains(t, lot.Fields, "auction_data")
	require.NotContains(t, lot.Fields, "auction")
}

func TestResolveLotsAlternateAuctionKey(t *testing.T) {
	t.Parallel()

	// The auction lives under a non-canonical cache key but carries its id;
	// lots reference it through the normalized Auction:<id> convention.
	cache := mustCache(t, `{
		"auctions({\"page\":1}).0": {"__typename": "Auction", "id": 7, "eventName": "Estate Closeout"},
		"Lot:300": {"__typename": "Lot", "id": "300", "auction": {"__ref": "Auction:7"}}
	}`)

	lots, skipped := ResolveLots(cache)
	require.Zero(t, skipped)
	require.Len(t, lots, 1)

	auction, ok := lots[0].Fields["auction_data"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Estate Closeout", auction["eventName"])
}

func TestResolveLotsInlinesLotStateFromWholeCache(t *testing.T) {
	t.Parallel()

	cache := mustCache(t, `{
		"LotState:55": {"__typename": "LotState", "highBid": 125.50, "bidCount": 9},
		"Lot:400": {"__typename": "Lot", "id": "400", "lotState": {"__ref": "LotState:55"}}
	}`)

	lots, skipped := ResolveLots(cache)
	require.Zero(t, skipped)
	require.Len(t, lots, 1)

	lot := lots[0]
	state, ok := lot.Fields["lot_state_data"].(map[string]any)
	require.True(t, ok, "lot state resolves against the entire cache")
	require.Equal(t, "LotState:55", lot.Fields["lot_state_ref"])
	require.NotContains(t, lot.Fields, "lotState")

	require.Equal(t, json.Number("9"), state["bidCount"])
	require.Equal(t, json.Number("125.50"), state["highBid"])
}

func TestResolveLotsPassesThroughOtherFields(t *testing.T) {
	t.Parallel()

	cache := mustCache(t, `{
		"Lot:500": {"__typename": "Lot", "id": "500", "lead": "Antique clock", "pictureCount": 12}
	}`)

	lots, _ := ResolveLots(cache)
	require.Len(t, lots, 1)
	require.Equal(t, "Antique clock", lots[0].Fields["lead"])
	require.Equal(t, "Lot", lots[0].Fields["__typename"], "typename is kept in the stored payload")
}

func TestResolveLotsIgnoresUnknownEntities(t *testing.T) {
	t.Parallel()

	cache := mustCache(t, `{
		"ROOT_QUERY": {"lotSearch": {"__ref": "LotSearchResult:1"}},
		"LotSearchResult:1": {"__typename": "LotSearchResult", "total": 5000},
		"Lot:600": {"__typename": "Lot", "id": "600"}
	}`)

	lots, skipped := ResolveLots(cache)
	require.Zero(t, skipped)
	require.Len(t, lots, 1)
	require.Equal(t, "600", lots[0].ItemID)
}

func TestDeriveItemID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		key    EntityKey
		fields map[string]any
		want   string
	}{
		{name: "id field wins", key: "Lot:1", fields: map[string]any{"id": "abc", "itemId": "zzz"}, want: "abc"},
		{name: "itemId fallback", key: "Lot:1", fields: map[string]any{"itemId": "789"}, want: "789"},
		{name: "eventItemId fallback", key: "Lot:1", fields: map[string]any{"eventItemId": 42}, want: "42"},
		{name: "numeric id stringified", key: "Lot:1", fields: map[string]any{"id": 100}, want: "100"},
		{name: "composite from cache key", key: "Lot:12345", fields: map[string]any{"lead": "x"}, want: "lot-12345"},
		{name: "empty id falls through to key", key: "Lot:9", fields: map[string]any{"id": ""}, want: "lot-9"},
		{name: "nothing derivable", key: EntityKey("plainkey"), fields: map[string]any{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, deriveItemID(tt.key, tt.fields))
		})
	}
}

func TestResolveLotsCountsLotsWithoutIdentifier(t *testing.T) {
	t.Parallel()

	cache := NormalizedCache{
		"unaddressable": {Key: "unaddressable", Kind: KindLot, Fields: map[string]any{"lead": "no id here"}},
		"Lot:700":       {Key: "Lot:700", Kind: KindLot, Fields: map[string]any{"id": "700"}},
	}

	lots, skipped := ResolveLots(cache)
	require.Equal(t, 1, skipped)
	require.Len(t, lots, 1)
	require.Equal(t, "700", lots[0].ItemID)
}
