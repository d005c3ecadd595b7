package statepath

import "testing"

func simpleBranchDesign() *Design[testData] {
	return &Design[testData]{
		ID:      "t",
		Initial: "a",
		States: []*StateDesign[testData]{
			{Name: "a"},
			{Name: "b"},
		},
	}
}

func TestBuildTreeClassifiesLeaf(t *testing.T) {
	root, err := buildTree[testData]("#t", simpleBranchDesign())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Type != Branch {
		t.Fatalf("root type = %v, want Branch", root.Type)
	}
	a := root.child("a")
	if a == nil {
		t.Fatal("expected child \"a\"")
	}
	if a.Type != Leaf {
		t.Fatalf("child a type = %v, want Leaf", a.Type)
	}
	if a.Path != "#t.root.a" {
		t.Fatalf("child a path = %q", a.Path)
	}
}

func TestBuildTreeClassifiesParallel(t *testing.T) {
	d := &Design[testData]{
		Initial: "",
		States: []*StateDesign[testData]{
			{Name: "region1", States: []*StateDesign[testData]{{Name: "x"}}},
			{Name: "region2", States: []*StateDesign[testData]{{Name: "y"}}},
		},
	}
	root, err := buildTree[testData]("#p", d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Type != Parallel {
		t.Fatalf("root type = %v, want Parallel", root.Type)
	}
}

func TestBuildTreePropagatesSlotErrors(t *testing.T) {
	d := &Design[testData]{
		Initial: "a",
		States: []*StateDesign[testData]{
			{Name: "a", On: map[string]any{"go": "missing-ref"}},
		},
	}
	if _, err := buildTree[testData]("#t", d); err == nil {
		t.Fatal("expected an error propagated from a bad handler slot")
	}
}

func TestActivateBranchUsesInitial(t *testing.T) {
	root, err := buildTree[testData]("#t", simpleBranchDesign())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	activate(root, nil, histNone)
	if !root.Active {
		t.Fatal("root should be active")
	}
	if !root.child("a").Active {
		t.Fatal("initial child \"a\" should be active")
	}
	if root.child("b").Active {
		t.Fatal("non-initial child \"b\" should not be active")
	}
}

func TestDeactivateRecordsHistory(t *testing.T) {
	root, _ := buildTree[testData]("#t", simpleBranchDesign())
	activate(root, []string{"b"}, histNone)
	deactivate(root)
	if root.History != "b" {
		t.Fatalf("history = %q, want \"b\"", root.History)
	}
	if root.Active || root.child("a").Active || root.child("b").Active {
		t.Fatal("deactivate should clear every Active flag")
	}
}

func TestActivatePreviousModeUsesHistory(t *testing.T) {
	root, _ := buildTree[testData]("#t", simpleBranchDesign())
	activate(root, []string{"b"}, histNone)
	deactivate(root)
	activate(root, nil, histPrevious)
	if !root.child("b").Active {
		t.Fatal("previous mode should re-enter the recorded history child")
	}
}
