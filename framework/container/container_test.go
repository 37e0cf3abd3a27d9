package container_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-container/framework/container"
)

// ── helpers ──────────────────────────────────────────────────────────────────

type service struct{ name string }

func value(v any) container.Factory {
	return func(*container.Container) (any, error) { return v, nil }
}

// counting returns a factory producing a fresh *service and the number of
// times it ran.
func counting(name string) (container.Factory, *int) {
	calls := 0
	return func(*container.Container) (any, error) {
		calls++
		return &service{name: name}, nil
	}, &calls
}

// ── Not found ────────────────────────────────────────────────────────────────

func TestContainer_Get_NotFound(t *testing.T) {
	c := container.New()

	_, err := c.Get("missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, container.ErrNotFound)
	var nf *container.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.ID)
	assert.True(t, container.IsNotFound(err))
	assert.False(t, c.Has("missing"))
}

func TestContainer_Get_EmptyID(t *testing.T) {
	c := container.New()
	_, err := c.Get("")
	assert.ErrorIs(t, err, container.ErrNotFound)
}

// ── Factories ────────────────────────────────────────────────────────────────

func TestContainer_Factory_CachedAndCalledOnce(t *testing.T) {
	c := container.New()
	f, calls := counting("mailer")
	require.NoError(t, c.RegisterFactory("mailer", f))

	assert.True(t, c.Has("mailer"))
	assert.False(t, c.Resolved("mailer"))

	first, err := c.Get("mailer")
	require.NoError(t, err)
	second, err := c.Get("mailer")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, *calls)
	assert.True(t, c.Resolved("mailer"))
}

func TestContainer_Factory_ReceivesContainer(t *testing.T) {
	c := container.New()
	var got *container.Container
	c.MustRegisterFactory("svc", func(inner *container.Container) (any, error) {
		got = inner
		return 1, nil
	})

	_, err := c.Get("svc")
	require.NoError(t, err)
	assert.Same(t, c, got)
}

func TestContainer_Factory_DuplicateRejected(t *testing.T) {
	c := container.New()
	require.NoError(t, c.RegisterFactory("db", value("primary")))

	err := c.RegisterFactory("db", value("replica"))

	require.Error(t, err)
	assert.ErrorIs(t, err, container.ErrDuplicateRegistration)
	var dup *container.DuplicateRegistrationError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "db", dup.ID)

	got, err := c.Get("db")
	require.NoError(t, err)
	assert.Equal(t, "primary", got)
}

func TestContainer_Factory_DuplicateRejectedAfterResolution(t *testing.T) {
	c := container.New()
	c.MustRegisterFactory("db", value("primary"))
	_, err := c.Get("db")
	require.NoError(t, err)

	assert.ErrorIs(t, c.RegisterFactory("db", value("replica")), container.ErrDuplicateRegistration)
}

func TestContainer_Factory_InvalidRegistration(t *testing.T) {
	c := container.New()
	assert.ErrorIs(t, c.RegisterFactory("", value(1)), container.ErrEmptyID)
	assert.ErrorIs(t, c.RegisterFactory("x", nil), container.ErrNilFactory)
	assert.False(t, c.Has("x"))
}

func TestContainer_MustRegisterFactory_PanicsOnDuplicate(t *testing.T) {
	c := container.New()
	c.MustRegisterFactory("x", value(1))
	assert.Panics(t, func() { c.MustRegisterFactory("x", value(2)) })
}

func TestContainer_RegisterFactories_StopsAtFirstDuplicate(t *testing.T) {
	c := container.New()
	c.MustRegisterFactory("b", value("original"))

	err := c.RegisterFactories(map[string]container.Factory{
		"a": value("a"),
		"b": value("b"),
		"c": value("c"),
	})

	require.ErrorIs(t, err, container.ErrDuplicateRegistration)
	assert.True(t, c.Has("a"), "entries before the duplicate are registered")
	assert.False(t, c.Has("c"), "entries after the duplicate are not")

	got, err := c.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "original", got)
}

func TestContainer_WithFactories(t *testing.T) {
	c := container.New(container.WithFactories(map[string]container.Factory{
		"greeting": value("hello"),
	}))

	got, err := container.Resolve[string](c, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestContainer_WithFactories_PanicsOnSelf(t *testing.T) {
	assert.Panics(t, func() {
		container.New(container.WithFactories(map[string]container.Factory{
			container.Self: value("not me"),
		}))
	})
}

func TestContainer_Factory_ErrorWrapped(t *testing.T) {
	boom := errors.New("boom")
	c := container.New()
	c.MustRegisterFactory("broken", func(*container.Container) (any, error) { return nil, boom })

	_, err := c.Get("broken")

	var ce *container.CreationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "broken", ce.ID)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, container.ErrCreation)
	assert.False(t, c.Resolved("broken"))
}

func TestContainer_Factory_PanicWrapped(t *testing.T) {
	c := container.New()
	c.MustRegisterFactory("panicky", func(*container.Container) (any, error) { panic("kaput") })

	_, err := c.Get("panicky")

	var ce *container.CreationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "panicky", ce.ID)
	assert.Contains(t, err.Error(), "kaput")
}

func TestContainer_Factory_NestedMissingIsCreationError(t *testing.T) {
	c := container.New()
	c.MustRegisterFactory("outer", func(c *container.Container) (any, error) {
		return c.Get("missing")
	})

	_, err := c.Get("outer")

	var ce *container.CreationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "outer", ce.ID)
	assert.Contains(t, err.Error(), `"outer"`)
	assert.Equal(t, container.ErrCreation, container.Classify(err))
	assert.False(t, container.IsNotFound(err))
}

func TestContainer_Factory_FailureNotCached(t *testing.T) {
	c := container.New()
	attempts := 0
	c.MustRegisterFactory("flaky", func(*container.Container) (any, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("not yet")
		}
		return "ready", nil
	})

	_, err := c.Get("flaky")
	require.Error(t, err)

	got, err := c.Get("flaky")
	require.NoError(t, err)
	assert.Equal(t, "ready", got)
	assert.Equal(t, 2, attempts)
}

func TestContainer_Factory_NilValueCached(t *testing.T) {
	c := container.New()
	f, calls := counting("unused")
	c.MustRegisterFactory("nothing", func(c *container.Container) (any, error) {
		_, _ = f(c)
		return nil, nil
	})

	for range 2 {
		got, err := c.Get("nothing")
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	assert.Equal(t, 1, *calls)
}

// ── Set ──────────────────────────────────────────────────────────────────────

func TestContainer_Set_Overwrites(t *testing.T) {
	c := container.New()

	c.Set("answer", 41)
	got, err := c.Get("answer")
	require.NoError(t, err)
	assert.Equal(t, 41, got)

	c.Set("answer", 42)
	got, err = c.Get("answer")
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestContainer_Set_EmptyIDIgnored(t *testing.T) {
	c := container.New()

	c.Set("", "value")

	assert.False(t, c.Resolved(""))
	assert.NotContains(t, c.IDs(), "")
	_, err := c.Get("")
	assert.ErrorIs(t, err, container.ErrNotFound)
}

func TestContainer_Set_BypassesFactory(t *testing.T) {
	c := container.New()
	f, calls := counting("from-factory")
	c.MustRegisterFactory("svc", f)

	seeded := &service{name: "seeded"}
	c.Set("svc", seeded)

	got, err := c.Get("svc")
	require.NoError(t, err)
	assert.Same(t, seeded, got)
	assert.Zero(t, *calls)
	assert.True(t, c.Has("svc"))
}

func TestContainer_Set_DoesNotCountForHas(t *testing.T) {
	c := container.New()
	c.Set("config", map[string]string{})
	assert.False(t, c.Has("config"))
	assert.True(t, c.Resolved("config"))
}

// ── Resolver chain ───────────────────────────────────────────────────────────

func claim(ids ...string) func(string) bool {
	return func(id string) bool {
		for _, want := range ids {
			if id == want {
				return true
			}
		}
		return false
	}
}

func TestContainer_Resolvers_FirstNonNilWins(t *testing.T) {
	c := container.New()
	var order []string

	c.AddResolver(container.ResolverFunc{
		Can: claim("x"),
		Build: func(string) (any, error) {
			order = append(order, "first")
			return nil, nil
		},
	})
	c.AddResolver(container.ResolverFunc{
		Can: claim("x"),
		Build: func(string) (any, error) {
			order = append(order, "second")
			return "from second", nil
		},
	})
	c.AddResolver(container.ResolverFunc{
		Can: claim("x"),
		Build: func(string) (any, error) {
			order = append(order, "third")
			return "from third", nil
		},
	})

	got, err := c.Get("x")
	require.NoError(t, err)
	assert.Equal(t, "from second", got)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestContainer_Resolvers_SkipsUnclaimedIDs(t *testing.T) {
	c := container.New()
	called := false
	c.AddResolver(container.ResolverFunc{
		Can:   claim("other"),
		Build: func(string) (any, error) { called = true; return "wrong", nil },
	})

	_, err := c.Get("x")
	assert.ErrorIs(t, err, container.ErrNotFound)
	assert.False(t, called)
}

func TestContainer_Resolvers_ErrorStopsChain(t *testing.T) {
	boom := errors.New("resolver failed")
	c := container.New(container.WithResolvers(
		container.ResolverFunc{Can: claim("x"), Build: func(string) (any, error) { return nil, boom }},
		container.ResolverFunc{Can: claim("x"), Build: func(string) (any, error) { return "late", nil }},
	))

	_, err := c.Get("x")
	assert.ErrorIs(t, err, boom)
	assert.False(t, c.Resolved("x"))
}

func TestContainer_Resolvers_FactoryTakesPrecedence(t *testing.T) {
	c := container.New()
	c.AddResolver(container.ResolverFunc{Can: claim("x"), Build: func(string) (any, error) { return "resolver", nil }})
	c.MustRegisterFactory("x", value("factory"))

	got, err := c.Get("x")
	require.NoError(t, err)
	assert.Equal(t, "factory", got)
}

func TestContainer_Resolvers_NotConsultedOnceCached(t *testing.T) {
	c := container.New()
	calls := 0
	c.AddResolver(container.ResolverFunc{
		Can:   claim("x"),
		Build: func(string) (any, error) { calls++; return &service{name: "x"}, nil },
	})

	first, err := c.Get("x")
	require.NoError(t, err)
	second, err := c.Get("x")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestContainer_Has_ConsultsResolvers(t *testing.T) {
	c := container.New()
	c.AddResolver(container.ResolverFunc{Can: claim("virtual"), Build: func(string) (any, error) { return nil, nil }})

	assert.True(t, c.Has("virtual"))
	assert.False(t, c.Has("other"))

	// Has only promises "not missing"; the resolver may still produce nothing.
	_, err := c.Get("virtual")
	assert.ErrorIs(t, err, container.ErrNotFound)
}

// ── Cycles ───────────────────────────────────────────────────────────────────

func TestContainer_CyclicFactories(t *testing.T) {
	c := container.New()
	c.MustRegisterFactory("a", func(c *container.Container) (any, error) { return c.Get("b") })
	c.MustRegisterFactory("b", func(c *container.Container) (any, error) { return c.Get("a") })

	_, err := c.Get("a")

	require.ErrorIs(t, err, container.ErrCyclicDependency)
	var cyc *container.CyclicDependencyError
	require.ErrorAs(t, err, &cyc)
	assert.Equal(t, []string{"a", "b", "a"}, cyc.Chain)
	assert.Contains(t, err.Error(), "a -> b -> a")

	// The stack unwinds: unrelated ids still resolve afterwards.
	c.MustRegisterFactory("c", value("ok"))
	got, err := c.Get("c")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

// ── Self binding & helpers ───────────────────────────────────────────────────

func TestContainer_SelfBinding(t *testing.T) {
	c := container.New()

	got, err := c.Get(container.Self)
	require.NoError(t, err)
	assert.Same(t, c, got)

	made, err := container.Make[*container.Container](c)
	require.NoError(t, err)
	assert.Same(t, c, made)
}

func TestContainer_IDs(t *testing.T) {
	c := container.New()
	c.MustRegisterFactory("zeta", value(1))
	c.Set("alpha", 2)

	assert.Equal(t, []string{
		"alpha",
		container.Self,
		container.KeyOf[container.Container](),
		"zeta",
	}, c.IDs())
}

func TestResolve_TypeMismatch(t *testing.T) {
	c := container.New()
	c.Set("port", "8000")

	_, err := container.Resolve[int](c, "port")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not assignable")
	assert.Panics(t, func() { container.MustResolve[int](c, "port") })
}

func TestResolve_NilValue(t *testing.T) {
	c := container.New()
	c.Set("none", nil)

	got, err := container.Resolve[*service](c, "none")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolve_DereferencesPointer(t *testing.T) {
	c := container.New()
	c.Set("svc", &service{name: "deref"})

	got, err := container.Resolve[service](c, "svc")
	require.NoError(t, err)
	assert.Equal(t, "deref", got.name)
}

func TestTypeKey(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"pointer", container.TypeKey((*service)(nil)), "github.com/km-arc/go-container/framework/container_test.service"},
		{"value", container.TypeKey(service{}), "github.com/km-arc/go-container/framework/container_test.service"},
		{"builtin", container.TypeKey(1), ""},
		{"unnamed", container.TypeKey([]string{}), ""},
		{"nil", container.TypeKey(nil), ""},
		{"generic", container.KeyOf[*container.Container](), "github.com/km-arc/go-container/framework/container.Container"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestMake_UnkeyableType(t *testing.T) {
	_, err := container.Make[int](container.New())
	assert.Error(t, err)
}

// ── Logging ──────────────────────────────────────────────────────────────────

func TestContainer_LogsResolution(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := container.New(container.WithLogger(zap.New(core)))
	c.MustRegisterFactory("svc", value(1))

	_, err := c.Get("svc")
	require.NoError(t, err)
	_, _ = c.Get("missing")

	assert.Equal(t, 1, logs.FilterMessage("service created").FilterField(zap.String("id", "svc")).Len())
	assert.Equal(t, 1, logs.FilterMessage("service resolution failed").FilterField(zap.String("id", "missing")).Len())
}

func TestContainer_SetLogger_NilDisablesLogging(t *testing.T) {
	c := container.New()
	c.SetLogger(nil)
	c.MustRegisterFactory("svc", value(1))
	_, err := c.Get("svc")
	assert.NoError(t, err)
}
