package dicontainer_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kreigan/dicontainer"
)

type keyedThing struct{}

// ── KeyFor ────────────────────────────────────────────────────────────────────

func TestKeyFor_NamedType(t *testing.T) {
	key := dicontainer.KeyFor[keyedThing]()
	if !strings.HasSuffix(string(key), ".keyedThing") {
		t.Errorf("key should be package-qualified, got %q", key)
	}
}

func TestKeyFor_PointerDerefsToElement(t *testing.T) {
	if got, want := dicontainer.KeyFor[*keyedThing](), dicontainer.KeyFor[keyedThing](); got != want {
		t.Errorf("pointer and value keys should match: got %q, want %q", got, want)
	}
}

func TestKeyFor_Interface(t *testing.T) {
	if got := dicontainer.KeyFor[io.Closer](); got != "io.Closer" {
		t.Errorf("got %q, want %q", got, "io.Closer")
	}
}

func TestKeyFor_UnnamedAndBuiltinTypes(t *testing.T) {
	if got := dicontainer.KeyFor[map[string]int](); got != "map[string]int" {
		t.Errorf("got %q, want %q", got, "map[string]int")
	}
	if got := dicontainer.KeyFor[string](); got != "string" {
		t.Errorf("got %q, want %q", got, "string")
	}
}

func TestKeyFor_Qualifier(t *testing.T) {
	base := dicontainer.KeyFor[keyedThing]()
	got := dicontainer.KeyFor[keyedThing]("replica")
	if want := base + "#replica"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := dicontainer.KeyFor[keyedThing](""); got != base {
		t.Errorf("empty qualifier should be a no-op, got %q", got)
	}
}

// ── Lifetime ──────────────────────────────────────────────────────────────────

func TestLifetime_String(t *testing.T) {
	cases := []struct {
		l    dicontainer.Lifetime
		want string
	}{
		{dicontainer.Transient, "Transient"},
		{dicontainer.Scoped, "Scoped"},
		{dicontainer.Singleton, "Singleton"},
		{dicontainer.Lifetime(9), "Lifetime(9)"},
	}
	for _, tc := range cases {
		if got := tc.l.String(); got != tc.want {
			t.Errorf("Lifetime(%d).String(): got %q, want %q", uint8(tc.l), got, tc.want)
		}
	}
}

// ── Descriptor validation ─────────────────────────────────────────────────────

func TestDescriptor_RegistrationRules(t *testing.T) {
	nop := func(deps ...any) (any, error) { return nil, nil }

	cases := []struct {
		name string
		d    *dicontainer.Descriptor
	}{
		{"empty key", &dicontainer.Descriptor{Lifetime: dicontainer.Transient, Factory: nop}},
		{"no strategy", &dicontainer.Descriptor{Key: "k", Lifetime: dicontainer.Transient}},
		{"factory and instance", &dicontainer.Descriptor{Key: "k", Lifetime: dicontainer.Singleton, Factory: nop, Instance: 1}},
		{"factory and alias", &dicontainer.Descriptor{Key: "k", Lifetime: dicontainer.Transient, Factory: nop, AliasTarget: "other"}},
		{"instance with dependencies", &dicontainer.Descriptor{Key: "k", Lifetime: dicontainer.Singleton, Instance: 1, Dependencies: []dicontainer.ServiceKey{"dep"}}},
		{"scoped instance", &dicontainer.Descriptor{Key: "k", Lifetime: dicontainer.Scoped, Instance: 1}},
		{"self alias", &dicontainer.Descriptor{Key: "k", Lifetime: dicontainer.Transient, AliasTarget: "k"}},
		{"alias with dependencies", &dicontainer.Descriptor{Key: "k", Lifetime: dicontainer.Transient, AliasTarget: "other", Dependencies: []dicontainer.ServiceKey{"dep"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := dicontainer.New()
			err := c.Register(tc.d)
			var cfg *dicontainer.ConfigurationError
			if !errors.As(err, &cfg) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
		})
	}

	t.Run("valid factory with dependencies", func(t *testing.T) {
		c := dicontainer.New()
		err := c.Register(&dicontainer.Descriptor{
			Key:          "k",
			Lifetime:     dicontainer.Scoped,
			Factory:      nop,
			Dependencies: []dicontainer.ServiceKey{"dep"},
		})
		must(t, err)
	})
}

func TestDescriptor_RegistrationIsCopied(t *testing.T) {
	c := dicontainer.New()
	deps := []dicontainer.ServiceKey{"logger"}
	must(t, c.Register(&dicontainer.Descriptor{
		Key:      "svc",
		Lifetime: dicontainer.Transient,
		Factory: func(resolved ...any) (any, error) {
			return &widget{tag: resolved[0].(*widget).tag}, nil
		},
		Dependencies: deps,
	}))
	must(t, c.Transient("logger", newWidget("log")))

	// Mutating the caller's slice after registration must not change the graph.
	deps[0] = "ghost"

	v, err := c.Resolve("svc")
	must(t, err)
	if got := v.(*widget).tag; got != "log" {
		t.Errorf("tag: got %q, want %q", got, "log")
	}
}
