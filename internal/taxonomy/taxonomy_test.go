package taxonomy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Loads(t *testing.T) {
	tax, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Basic Interactions", "About Company", "About Product",
		"Recommendation", "Logistics", "Special Categories",
	}, tax.Primaries())
	assert.Equal(t, Pair{Primary: "Special Categories", Secondary: "out_of_scope"}, tax.Default)
	assert.NotEmpty(t, tax.Fallback)
}

func TestValid(t *testing.T) {
	tax, err := Default()
	require.NoError(t, err)

	assert.True(t, tax.Valid("Logistics", "order_status"))
	assert.True(t, tax.Valid("Basic Interactions", "greetings"))
	assert.False(t, tax.Valid("Logistics", "greetings"), "secondary under wrong primary")
	assert.False(t, tax.Valid("Nope", "order_status"))
	assert.False(t, tax.Valid("Logistics", ""))
}

func TestSecondaries_Order(t *testing.T) {
	tax, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{"greetings", "acknowledgment", "language_preference"}, tax.Secondaries("Basic Interactions"))
	assert.Equal(t, []string{"gibberish", "out_of_scope"}, tax.Secondaries("Special Categories"))
	assert.Nil(t, tax.Secondaries("Unknown"))
}

func TestDefault_FallbackOrder(t *testing.T) {
	tax, err := Default()
	require.NoError(t, err)

	var got []string
	for _, r := range tax.Fallback {
		got = append(got, r.Secondary)
	}
	assert.Equal(t, []string{
		"order_delivered_but_not_received",
		"order_status",
		"delivery_delay",
		"wrong_order",
		"language_preference",
		"acknowledgment",
		"greetings",
	}, got)
}

const minimalYAML = `
categories:
  - name: Support
    intents:
      - {name: help}
      - {name: other}
default: {primary: Support, secondary: other}
fallback:
  - primary: Support
    secondary: help
    keywords: [help]
`

func TestParse_Minimal(t *testing.T) {
	tax, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	assert.True(t, tax.Valid("Support", "help"))
	assert.Contains(t, tax.Instructions(), "a customer support team")
}

func TestParse_ValidationErrors(t *testing.T) {
	yaml := `
categories:
  - name: Support
    intents:
      - {name: help}
      - {name: help}
  - name: Support
    intents: []
default: {primary: Support, secondary: missing}
fallback:
  - primary: Other
    secondary: x
    keywords: []
  - primary: Support
    secondary: help
    keywords: [Help]
`
	_, err := Parse([]byte(yaml))
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, `duplicate intent "help"`)
	assert.Contains(t, msg, `duplicate category "Support"`)
	assert.Contains(t, msg, "has no intents")
	assert.Contains(t, msg, "default Support/missing")
	assert.Contains(t, msg, "fallback[0] Other/x")
	assert.Contains(t, msg, "fallback[0] has no keywords")
	assert.Contains(t, msg, `keyword "Help" must be non-empty lower case`)
}

func TestParse_NoCategories(t *testing.T) {
	_, err := Parse([]byte("company: x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one category")
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("categories: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing taxonomy")
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o644))

	tax, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Support"}, tax.Primaries())
}

func TestLoad_EmptyPathUsesEmbedded(t *testing.T) {
	tax, err := Load("")
	require.NoError(t, err)
	assert.Len(t, tax.Categories, 6)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "reading taxonomy"))
}

func TestDefaultYAML_RoundTrips(t *testing.T) {
	data := DefaultYAML()
	data[0] = '!'
	assert.NotEqual(t, data[0], DefaultYAML()[0], "callers get a copy")

	tax, err := Parse(DefaultYAML())
	require.NoError(t, err)
	def, err := Default()
	require.NoError(t, err)
	assert.Equal(t, def.Primaries(), tax.Primaries())
}
