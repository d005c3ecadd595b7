package statepath

import "testing"

type testData struct {
	N int
}

func TestDesignValidateDuplicateStateName(t *testing.T) {
	d := &Design[testData]{
		Initial: "a",
		States: []*StateDesign[testData]{
			{Name: "a"},
			{Name: "a"},
		},
	}
	err := d.Validate()
	if err == nil {
		t.Fatal("expected an error for a duplicate state name")
	}
	if _, ok := err.(*DesignError); !ok {
		t.Fatalf("expected *DesignError, got %T", err)
	}
}

func TestDesignValidateUnknownInitial(t *testing.T) {
	d := &Design[testData]{
		Initial: "missing",
		States: []*StateDesign[testData]{
			{Name: "a"},
		},
	}
	if err := d.Validate(); err == nil {
		t.Fatal("expected an error for an initial naming no declared child")
	}
}

func TestDesignValidateUnknownLibraryReference(t *testing.T) {
	d := &Design[testData]{
		Initial: "a",
		States: []*StateDesign[testData]{
			{
				Name: "a",
				On:   map[string]any{"go": "nonexistent"},
			},
		},
		Library: &Library[testData]{},
	}
	if err := d.Validate(); err == nil {
		t.Fatal("expected an error for an unresolved library shorthand")
	}
}

func TestDesignValidateLibraryReferenceResolves(t *testing.T) {
	d := &Design[testData]{
		Initial: "a",
		States: []*StateDesign[testData]{
			{
				Name: "a",
				On:   map[string]any{"go": "bump"},
			},
		},
		Library: &Library[testData]{
			Actions: map[string]ActionFn[testData]{
				"bump": func(draft *testData, payload, result any) { draft.N++ },
			},
		},
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDesignValidateNestedStates(t *testing.T) {
	d := &Design[testData]{
		Initial: "parent",
		States: []*StateDesign[testData]{
			{
				Name:    "parent",
				Initial: "child",
				States: []*StateDesign[testData]{
					{Name: "child"},
				},
			},
		},
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDesignValidateAsyncRequiresAwait(t *testing.T) {
	d := &Design[testData]{
		Initial: "a",
		States: []*StateDesign[testData]{
			{Name: "a", Async: &AsyncDesign[testData]{}},
		},
	}
	if err := d.Validate(); err == nil {
		t.Fatal("expected an error for an Async without an Await function")
	}
}

func TestNormalizeSlotShorthands(t *testing.T) {
	lib := &Library[testData]{
		Actions: map[string]ActionFn[testData]{
			"bump": func(draft *testData, payload, result any) { draft.N++ },
		},
	}

	cases := []struct {
		name string
		slot any
		want int // expected chain length, -1 for expected error
	}{
		{"nil", nil, 0},
		{"actionFn", ActionFn[testData](func(draft *testData, payload, result any) {}), 1},
		{"string", "bump", 1},
		{"handlerItem", HandlerItem[testData]{}, 1},
		{"handlerChain", HandlerChain[testData]{{}, {}}, 2},
		{"slice", []any{"bump", HandlerItem[testData]{}}, 2},
		{"unsupported", 42, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chain, err := normalizeSlot[testData](lib, "test", tc.slot)
			if tc.want == -1 {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(chain) != tc.want {
				t.Fatalf("got chain length %d, want %d", len(chain), tc.want)
			}
		})
	}
}
