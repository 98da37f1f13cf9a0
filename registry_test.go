package coach

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	t.Run("empty name rejected", func(t *testing.T) {
		require.Error(t, registry.Register(terminal("")))
	})

	t.Run("terminal sentinel rejected", func(t *testing.T) {
		require.Error(t, registry.Register(terminal(TerminalNode)))
	})

	t.Run("register and get", func(t *testing.T) {
		require.NoError(t, registry.Register(terminal("b")))
		require.NoError(t, registry.Register(terminal("a")))

		node, ok := registry.Get("a")
		require.True(t, ok)
		require.Equal(t, "a", node.Name())

		_, ok = registry.Get("missing")
		require.False(t, ok)

		require.Equal(t, []string{"a", "b"}, registry.Names())
	})

	t.Run("re-registering replaces", func(t *testing.T) {
		replacement := passThrough("a", "b")
		require.NoError(t, registry.Register(replacement))
		node, ok := registry.Get("a")
		require.True(t, ok)
		require.Same(t, replacement, node)
	})
}
