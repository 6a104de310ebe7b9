package scraper

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchURL(t *testing.T) {
	t.Parallel()

	cfg := Config{ZipCode: "78414", RadiusMiles: 100}.withDefaults()

	t.Run("all lots", func(t *testing.T) {
		t.Parallel()
		u, err := url.Parse(SearchURL(cfg, "", 1))
		require.NoError(t, err)
		require.Equal(t, "/lots/", u.Path)
		require.Equal(t, "open", u.Query().Get("status"))
		require.Equal(t, "78414", u.Query().Get("zip"))
		require.Equal(t, "100", u.Query().Get("miles"))
		require.Equal(t, "1", u.Query().Get("apage"))
		require.Equal(t, "100", u.Query().Get("ipp"))
	})

	t.Run("category path segment", func(t *testing.T) {
		t.Parallel()
		u, err := url.Parse(SearchURL(cfg, "coins---currency", 3))
		require.NoError(t, err)
		require.Equal(t, "/lots/coins---currency/", u.Path)
		require.Equal(t, "3", u.Query().Get("apage"))
	})
}
