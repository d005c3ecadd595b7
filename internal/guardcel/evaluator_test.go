package guardcel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doorData struct {
	Open  bool
	Count int
}

func toMap(d doorData) any {
	return map[string]any{"open": d.Open, "count": d.Count}
}

func TestConditionEvaluatesAgainstData(t *testing.T) {
	ev, err := NewEvaluator[doorData](toMap)
	require.NoError(t, err)

	cond := ev.Condition(`data.open == true`)
	assert.True(t, cond(doorData{Open: true}, nil, nil))
	assert.False(t, cond(doorData{Open: false}, nil, nil))
}

func TestConditionSeesPayloadAndResult(t *testing.T) {
	ev, err := NewEvaluator[doorData](toMap)
	require.NoError(t, err)

	cond := ev.Condition(`payload == "open" && result == true`)
	assert.True(t, cond(doorData{}, "open", true))
	assert.False(t, cond(doorData{}, "close", true))
}

func TestResultReturnsRawValue(t *testing.T) {
	ev, err := NewEvaluator[doorData](toMap)
	require.NoError(t, err)

	get := ev.Result(`data.count + 1`)
	out := get(doorData{Count: 4}, nil, nil)
	assert.EqualValues(t, 5, out)
}

func TestConditionPanicsOnNonBoolResult(t *testing.T) {
	ev, err := NewEvaluator[doorData](toMap)
	require.NoError(t, err)

	cond := ev.Condition(`data.count`)
	assert.Panics(t, func() { cond(doorData{Count: 1}, nil, nil) })
}

func TestCompileConditionsBuildsMap(t *testing.T) {
	ev, err := NewEvaluator[doorData](toMap)
	require.NoError(t, err)

	conds := ev.CompileConditions(map[string]string{
		"isOpen": `data.open == true`,
	})
	require.Contains(t, conds, "isOpen")
	assert.True(t, conds["isOpen"](doorData{Open: true}, nil, nil))
}

func TestCompileCachesProgramByExpression(t *testing.T) {
	ev, err := NewEvaluator[doorData](toMap)
	require.NoError(t, err)

	prg1, err := ev.compile(`data.open`)
	require.NoError(t, err)
	prg2, err := ev.compile(`data.open`)
	require.NoError(t, err)
	assert.Len(t, ev.cache, 1)
	_ = prg1
	_ = prg2
}
