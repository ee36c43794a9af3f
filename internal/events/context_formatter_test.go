package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagforge/flagforge-go/ldcontext"
	"github.com/flagforge/flagforge-go/ldvalue"
)

func TestEventContextFormatterConstructor(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		f := newEventContextFormatter(Config{})
		assert.False(t, f.allAttributesPrivate)
		assert.Nil(t, f.privateAttributes)
	})

	t.Run("all private", func(t *testing.T) {
		f := newEventContextFormatter(Config{AllAttributesPrivate: true})
		assert.True(t, f.allAttributesPrivate)
	})

	t.Run("named private attributes", func(t *testing.T) {
		f := newEventContextFormatter(Config{PrivateAttributes: []string{"name", "email"}})
		assert.False(t, f.allAttributesPrivate)
		require.NotNil(t, f.privateAttributes)
		_, hasName := f.privateAttributes["name"]
		_, hasEmail := f.privateAttributes["email"]
		assert.True(t, hasName)
		assert.True(t, hasEmail)
	})
}

func TestEventContextFormatterFormatsSingleKind(t *testing.T) {
	f := newEventContextFormatter(Config{})
	ctx := ldcontext.NewMulti(ldcontext.KindAttr{
		Kind: "user", Key: "my-key",
		Attributes: map[string]ldvalue.Value{"name": ldvalue.String("my-name")},
	})

	out := f.format(ctx)
	assert.Equal(t, "user", out["kind"])
	assert.Equal(t, "my-key", out["key"])
	assert.Equal(t, ldvalue.String("my-name"), out["name"])
	assert.NotContains(t, out, "_meta")
}

func TestEventContextFormatterRedactsPrivateAttributes(t *testing.T) {
	f := newEventContextFormatter(Config{PrivateAttributes: []string{"name"}})
	ctx := ldcontext.NewMulti(ldcontext.KindAttr{
		Kind: "user", Key: "my-key",
		Attributes: map[string]ldvalue.Value{
			"name":  ldvalue.String("my-name"),
			"email": ldvalue.String("my-email"),
		},
	})

	out := f.format(ctx)
	assert.NotContains(t, out, "name")
	assert.Equal(t, ldvalue.String("my-email"), out["email"])
	meta, ok := out["_meta"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, meta["redactedAttributes"])
}

func TestEventContextFormatterAllAttributesPrivate(t *testing.T) {
	f := newEventContextFormatter(Config{AllAttributesPrivate: true})
	ctx := ldcontext.NewMulti(ldcontext.KindAttr{
		Kind: "user", Key: "my-key",
		Attributes: map[string]ldvalue.Value{"name": ldvalue.String("my-name")},
	})

	out := f.format(ctx)
	assert.NotContains(t, out, "name")
	meta, ok := out["_meta"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, meta["redactedAttributes"])
}

func TestEventContextFormatterFormatsMultiKind(t *testing.T) {
	f := newEventContextFormatter(Config{})
	ctx := ldcontext.NewMulti(
		ldcontext.KindAttr{Kind: "user", Key: "user-key"},
		ldcontext.KindAttr{Kind: "org", Key: "org-key"},
	)

	out := f.format(ctx)
	assert.Equal(t, "multi", out["kind"])
	user, ok := out["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "user-key", user["key"])
	assert.NotContains(t, user, "kind")
	org, ok := out["org"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "org-key", org["key"])
}

func TestEventContextFormatterIncludesAnonymous(t *testing.T) {
	f := newEventContextFormatter(Config{})
	ctx := ldcontext.NewMulti(ldcontext.KindAttr{Kind: "user", Key: "my-key", Anonymous: true})

	out := f.format(ctx)
	assert.Equal(t, true, out["anonymous"])
}
