package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSelectors_Valid(t *testing.T) {
	t.Parallel()
	require.NoError(t, DefaultSelectors().Validate())
}

func TestLoadSelectors_OverridesKeepDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "selectors.yaml")
	profile := `
addresses:
  group: "#locations .location"
  physical: ".street"
fax_marker: "facsimile"
`
	require.NoError(t, os.WriteFile(path, []byte(profile), 0o644))

	sel, err := LoadSelectors(path)
	require.NoError(t, err)
	assert.Equal(t, "#locations .location", sel.Addresses.Group)
	assert.Equal(t, ".street", sel.Addresses.Physical)
	assert.Equal(t, "a[href^='mailto:']", sel.Addresses.Email)
	assert.Equal(t, ".office-officials .official", sel.Officials.Group)
	assert.Equal(t, "facsimile", sel.FaxMarker)
}

func TestLoadSelectors_CustomLayout(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "selectors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addresses:\n  group: \"#locations .location\"\n  physical: \".street\"\n"), 0o644))

	sel, err := LoadSelectors(path)
	require.NoError(t, err)

	got := New(sel).ExtractHTML(`<ul id="locations"><li class="location"><span class="street">5 Oak Ave</span></li></ul>`).Map()
	assert.Equal(t, map[string]string{"Address 1": "5 Oak Ave"}, got)
}

func TestLoadSelectors_InvalidSelector(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "selectors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("officials:\n  group: \"div[[\"\n"), 0o644))

	_, err := LoadSelectors(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "officials.group")
}

func TestLoadSelectors_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadSelectors(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read selectors")
}

func TestLoadSelectors_BadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "selectors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addresses: [unclosed"), 0o644))

	_, err := LoadSelectors(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse selectors")
}

func TestSelectorsValidate_ReportsFirstInvalidInProfileOrder(t *testing.T) {
	t.Parallel()

	sel := DefaultSelectors()
	sel.Addresses.Group = "div[["
	sel.Officials.Group = "span(("

	for range 20 {
		err := sel.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "addresses.group")
		assert.NotContains(t, err.Error(), "officials.group")
	}
}
