package statepath

import "testing"

// pingPongDesign builds a design with two states whose onEnter chains
// transition into each other, unconditionally, to exercise the loop guard
// (spec invariant 5). A state that targets itself would not do: the
// active set before and after is the same, so nothing is exited or
// entered and its onEnter does not run again.
func pingPongDesign(devMode bool) *Design[testData] {
	return &Design[testData]{
		ID:      "loop-" + randSuffix(),
		Initial: "ping",
		States: []*StateDesign[testData]{
			{
				Name: "ping",
				OnEnter: HandlerItem[testData]{
					Do: []ActionFn[testData]{func(draft *testData, payload, result any) { draft.N++ }},
					To: []ToFn[testData]{func(data testData, payload, result any) string { return "pong" }},
				},
			},
			{
				Name: "pong",
				OnEnter: HandlerItem[testData]{
					Do: []ActionFn[testData]{func(draft *testData, payload, result any) { draft.N++ }},
					To: []ToFn[testData]{func(data testData, payload, result any) string { return "ping" }},
				},
			},
		},
	}
}

func TestLoopGuardBoundaryReleaseMode(t *testing.T) {
	_, err := NewInstance(pingPongDesign(false))
	if err == nil {
		t.Fatal("expected a *LoopError from two onEnter chains that transition into each other forever")
	}
	loopErr, ok := err.(*LoopError)
	if !ok {
		t.Fatalf("expected *LoopError, got %T: %v", err, err)
	}
	if loopErr.Count != maxTransitions {
		t.Fatalf("loopErr.Count = %d, want %d", loopErr.Count, maxTransitions)
	}
}

func TestLoopGuardBoundaryDevMode(t *testing.T) {
	_, err := NewInstance(pingPongDesign(true), WithDevMode[testData](true))
	if err == nil {
		t.Fatal("expected an error from dev-mode's panic-then-recover path")
	}
	if _, ok := err.(*HandlerError); !ok {
		t.Fatalf("expected *HandlerError wrapping the panic, got %T: %v", err, err)
	}
}

// historyDesign has a branch with two children, one of which is itself a
// branch with its own two children, so previous/restore can be told apart:
// previous only restores one level, restore recurses.
func historyDesign() *Design[testData] {
	return &Design[testData]{
		ID:      "hist-" + randSuffix(),
		Initial: "menu",
		States: []*StateDesign[testData]{
			{Name: "menu"},
			{
				Name:    "game",
				Initial: "playing",
				States: []*StateDesign[testData]{
					{
						Name:    "playing",
						Initial: "level1",
						States: []*StateDesign[testData]{
							{Name: "level1"},
							{Name: "level2"},
						},
					},
					{Name: "paused"},
				},
			},
		},
		On: map[string]any{
			"menu":    HandlerItem[testData]{To: []ToFn[testData]{fixedTarget("menu")}},
			"game":    HandlerItem[testData]{To: []ToFn[testData]{fixedTarget("game")}},
			"level2":  HandlerItem[testData]{To: []ToFn[testData]{fixedTarget("level2")}},
			"pause":   HandlerItem[testData]{To: []ToFn[testData]{fixedTarget("paused")}},
			"restore": HandlerItem[testData]{To: []ToFn[testData]{fixedTarget("game.restore")}},
			"previous": HandlerItem[testData]{To: []ToFn[testData]{fixedTarget("game.previous")}},
		},
	}
}

func fixedTarget(target string) ToFn[testData] {
	return func(data testData, payload, result any) string { return target }
}

func TestHistoryRestoreReentersNestedChild(t *testing.T) {
	inst, err := NewInstance(historyDesign())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer inst.Close()

	inst.Send("level2", nil)
	if !inst.IsIn("level2") {
		t.Fatalf("expected to be in level2, active = %v", inst.GetUpdate().Active)
	}

	inst.Send("menu", nil)
	if !inst.IsIn("menu") {
		t.Fatalf("expected to be in menu, active = %v", inst.GetUpdate().Active)
	}

	inst.Send("restore", nil)
	if !inst.IsIn("level2") {
		t.Fatalf("restore should re-enter the nested history all the way down to level2, active = %v", inst.GetUpdate().Active)
	}
}

func TestHistoryPreviousRestoresOneLevel(t *testing.T) {
	inst, err := NewInstance(historyDesign())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer inst.Close()

	inst.Send("pause", nil)
	if !inst.IsIn("paused") {
		t.Fatalf("expected to be in paused, active = %v", inst.GetUpdate().Active)
	}

	inst.Send("menu", nil)
	inst.Send("previous", nil)
	if !inst.IsIn("paused") {
		t.Fatalf("previous should re-enter \"paused\", the last active child of game, active = %v", inst.GetUpdate().Active)
	}
}
