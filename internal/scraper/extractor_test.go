package scraper

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// statePage wraps a raw apollo.state object in the HTML shell HiBid serves.
func statePage(state string) string {
	return fmt.Sprintf(`<!doctype html>
<html>
<head><title>Lots</title></head>
<body>
<app-root></app-root>
<script id="hibid-state" type="application/json">{"apollo.state":%s}</script>
</body>
</html>`, state)
}

func TestExtractStateSuccess(t *testing.T) {
	t.Parallel()

	html := statePage(`{
		"Lot:1": {"__typename": "Lot", "id": "1"},
		"Auction:2": {"__typename": "Auction", "eventName": "Weekly"}
	}`)

	cache, err := ExtractState(html)
	require.NoError(t, err)
	require.Len(t, cache, 2)
	require.Equal(t, KindLot, cache["Lot:1"].Kind)
	require.Equal(t, KindAuction, cache["Auction:2"].Kind)
}

func TestExtractStateSkipsScalarEntries(t *testing.T) {
	t.Parallel()

	html := statePage(`{
		"Lot:1": {"__typename": "Lot", "id": "1"},
		"someFlag": true
	}`)

	cache, err := ExtractState(html)
	require.NoError(t, err)
	require.Len(t, cache, 1)
}

func TestExtractStateFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		html    string
		wantErr error
	}{
		{
			name:    "no script element",
			html:    `<html><body><p>no state here</p></body></html>`,
			wantErr: ErrStateMissing,
		},
		{
			name:    "empty script element",
			html:    `<html><body><script id="hibid-state"></script></body></html>`,
			wantErr: ErrStateMissing,
		},
		{
			name:    "malformed json",
			html:    `<html><body><script id="hibid-state">{"apollo.state": {</script></body></html>`,
			wantErr: ErrStateMalformed,
		},
		{
			name:    "state field absent",
			html:    `<html><body><script id="hibid-state">{"other": {}}</script></body></html>`,
			wantErr: ErrStateMissing,
		},
		{
			name:    "state field empty",
			html:    `<html><body><script id="hibid-state">{"apollo.state": {}}</script></body></html>`,
			wantErr: ErrStateMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ExtractState(tt.html)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		key    EntityKey
		fields map[string]any
		want   EntityKind
	}{
		{name: "typename auction", key: "whatever", fields: map[string]any{"__typename": "Auction"}, want: KindAuction},
		{name: "typename lot", key: "whatever", fields: map[string]any{"__typename": "Lot"}, want: KindLot},
		{name: "typename lot state", key: "whatever", fields: map[string]any{"__typename": "LotState"}, want: KindLotState},
		{name: "key prefix fallback", key: "Lot:9", fields: map[string]any{}, want: KindLot},
		{name: "unrecognized passthrough", key: "SearchResult:1", fields: map[string]any{}, want: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, kindOf(tt.key, tt.fields))
		})
	}
}
