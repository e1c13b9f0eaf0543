package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/multiio/internal/config"
	"github.com/roach88/multiio/internal/endpoint"
	"github.com/roach88/multiio/internal/format"
	"github.com/roach88/multiio/internal/testutil"
	"github.com/roach88/multiio/internal/value"
)

type constructor func(*format.Registry, config.ErrorPolicy, []Input, []Output, ...Option) *Engine

var engines = map[string]constructor{"sync": New, "async": NewAsync}

func stub(id, loc, text string, log *testutil.OpenLog) Input {
	return Input{Provider: testutil.NewStub(id, loc, text, log)}
}

func memOut(id, loc string) (*endpoint.MemoryTarget, Output) {
	t := endpoint.NewMemoryTarget(id, loc)
	return t, Output{Target: t}
}

func positions(err error) []int {
	var out []int
	for _, ie := range Failures(err) {
		out = append(out, ie.Position)
	}
	return out
}

func TestReadAllPreservesDeclarationOrder(t *testing.T) {
	for name, newEngine := range engines {
		t.Run(name, func(t *testing.T) {
			inputs := []Input{
				{Provider: &testutil.StubProvider{IDValue: "a", Loc: "a.json", Text: `"first"`, Delay: 30 * time.Millisecond}},
				{Provider: &testutil.StubProvider{IDValue: "b", Loc: "b.json", Text: `"second"`, Delay: 10 * time.Millisecond}},
				{Provider: &testutil.StubProvider{IDValue: "c", Loc: "c.yaml", Text: `third`}},
			}
			e := newEngine(format.NewDefault(), config.Accumulate, inputs, nil)

			vals, err := e.ReadAll(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []value.Value{value.String("first"), value.String("second"), value.String("third")}, vals)
		})
	}
}

func TestReadAllFastFail(t *testing.T) {
	for name, newEngine := range engines {
		t.Run(name, func(t *testing.T) {
			log := &testutil.OpenLog{}
			inputs := []Input{
				stub("ok1", "1.json", `{"a":1}`, log),
				stub("bad", "2.json", `{"a":`, log),
				stub("ok3", "3.json", `{"a":3}`, log),
			}
			e := newEngine(format.NewDefault(), config.FastFail, inputs, nil)

			vals, err := e.ReadAll(context.Background())
			assert.Nil(t, vals)

			var ie *ItemError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, 1, ie.Position)
			assert.Equal(t, "bad", ie.ID)
			assert.Equal(t, StageDecode, ie.Stage)
			var de *format.DecodeError
			assert.ErrorAs(t, err, &de)

			assert.Equal(t, []string{"ok1", "bad"}, log.Opened())
		})
	}
}

func TestReadAllAccumulate(t *testing.T) {
	for name, newEngine := range engines {
		t.Run(name, func(t *testing.T) {
			log := &testutil.OpenLog{}
			inputs := []Input{
				stub("0", "0.json", `1`, log),
				stub("1", "1.json", `nope`, log),
				stub("2", "2.csv", "a\n1\n", log),
				stub("3", "3.unknownext", `1`, log),
				stub("4", "4.yaml", `x: 1`, log),
			}
			e := newEngine(format.NewDefault(), config.Accumulate, inputs, nil)

			vals, err := e.ReadAll(context.Background())
			assert.Nil(t, vals, "successes from a failed accumulate run are discarded")

			var pe *PipelineError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, []int{1, 3}, positions(err))
			assert.Equal(t, StageDecode, pe.Errors[0].Stage)
			assert.Equal(t, StageResolve, pe.Errors[1].Stage)
			assert.True(t, format.IsUnsupported(pe.Errors[1]))

			// Unresolvable inputs are never opened.
			assert.False(t, log.Has("3"))
		})
	}
}

func TestReadAllAccumulateAllSucceed(t *testing.T) {
	inputs := []Input{stub("a", "a.json", `1`, nil), stub("b", "b.json", `2`, nil)}
	vals, err := New(format.NewDefault(), config.Accumulate, inputs, nil).ReadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.Int(1), value.Int(2)}, vals)
}

func TestExplicitFormatWins(t *testing.T) {
	inputs := []Input{{Provider: testutil.NewStub("in", "config.json", "name: a\n", nil), Format: format.YAML}}
	vals, err := New(format.NewDefault(), config.FastFail, inputs, nil).ReadAll(context.Background())
	require.NoError(t, err)
	assert.True(t, value.Equal(value.NewObject(value.P("name", value.String("a"))), vals[0]))
}

func TestStreamWithoutFormatIsUnsupported(t *testing.T) {
	inputs := []Input{{Provider: endpoint.NewMemory("in", "", []byte("{}"))}}
	_, err := New(format.NewDefault(), config.FastFail, inputs, nil).ReadAll(context.Background())

	assert.True(t, IsStage(err, StageResolve))
	assert.True(t, format.IsUnsupported(err))
}

func TestRunJSONToYAML(t *testing.T) {
	target, out := memOut("out", "config.yaml")
	inputs := []Input{stub("in", "config.json", `{"name":"a","value":1}`, nil)}

	report, err := New(format.NewDefault(), config.FastFail, inputs, []Output{out}).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, "name: a\nvalue: 1\n", string(target.Bytes()))
}

func TestRoute(t *testing.T) {
	assert.Equal(t, [][]int{{0}, {1}}, Route(2, 2))
	assert.Equal(t, [][]int{{0, 1, 2}}, Route(3, 1))
	assert.Equal(t, [][]int{{0}, {0}, {0}}, Route(1, 3))
	assert.Equal(t, [][]int{{0, 1, 2}, {0, 1, 2}}, Route(3, 2))
}

func TestWriteAllTopologies(t *testing.T) {
	a := BatchOf("a", value.Array{value.Int(1), value.Int(2)})
	b := BatchOf("b", value.Int(3))
	ctx := context.Background()

	t.Run("concatenate", func(t *testing.T) {
		target, out := memOut("o", "o.json")
		e := New(format.NewDefault(), config.FastFail, nil, []Output{out})
		require.NoError(t, e.WriteAll(ctx, []Batch{a, b}))
		assert.Equal(t, "[\n  1,\n  2,\n  3\n]\n", string(target.Bytes()))
	})

	t.Run("broadcast", func(t *testing.T) {
		t1, o1 := memOut("o1", "o.json")
		t2, o2 := memOut("o2", "o.yaml")
		e := New(format.NewDefault(), config.FastFail, nil, []Output{o1, o2})
		require.NoError(t, e.WriteAll(ctx, []Batch{a}))
		assert.Equal(t, "[\n  1,\n  2\n]\n", string(t1.Bytes()))
		assert.Equal(t, "- 1\n- 2\n", string(t2.Bytes()))
	})

	t.Run("positional", func(t *testing.T) {
		t1, o1 := memOut("o1", "o1.json")
		t2, o2 := memOut("o2", "o2.json")
		e := New(format.NewDefault(), config.FastFail, nil, []Output{o1, o2})
		require.NoError(t, e.WriteAll(ctx, []Batch{a, b}))
		assert.Equal(t, "[\n  1,\n  2\n]\n", string(t1.Bytes()))
		assert.Equal(t, "3\n", string(t2.Bytes()), "a single value is written as itself")
	})
}

func TestWriteAllFastFailStopsAtFirstFailure(t *testing.T) {
	for name, newEngine := range engines {
		t.Run(name, func(t *testing.T) {
			good, goodOut := memOut("good", "good.json")
			outputs := []Output{{Target: &testutil.FailingTarget{IDValue: "bad", Loc: "bad.json"}}, goodOut}
			e := newEngine(format.NewDefault(), config.FastFail, nil, outputs)

			err := e.WriteValues(context.Background(), []value.Value{value.Int(1)})
			var ie *ItemError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, StageWrite, ie.Stage)
			assert.True(t, endpoint.HasCode(err, endpoint.ErrCodePermissionDenied))
			assert.False(t, good.Written())
		})
	}
}

func TestWriteAllAccumulateAttemptsEveryOutput(t *testing.T) {
	for name, newEngine := range engines {
		t.Run(name, func(t *testing.T) {
			good, goodOut := memOut("good", "good.json")
			outputs := []Output{
				{Target: &testutil.FailingTarget{IDValue: "bad", Loc: "bad.json"}},
				goodOut,
				{Target: endpoint.NewMemoryTarget("csv", "nested.csv")},
			}
			e := newEngine(format.NewDefault(), config.Accumulate, nil, outputs)

			err := e.WriteValues(context.Background(), []value.Value{
				value.NewObject(value.P("nested", value.NewObject())),
			})
			assert.Equal(t, []int{0, 2}, positions(err))
			assert.True(t, IsStage(err, StageEncode))
			assert.ErrorIs(t, err, format.ErrUnrepresentable)
			assert.True(t, good.Written())
		})
	}
}

func TestSyncAsyncParity(t *testing.T) {
	build := func(newEngine constructor) ([]*endpoint.MemoryTarget, error) {
		inputs := []Input{
			stub("people", "people.csv", "name,age\nada,36\nlinus,54\n", nil),
			stub("more", "more.json", `[{"name":"grace","age":85}]`, nil),
			stub("broken", "broken.yaml", "a: [", nil),
		}
		var targets []*endpoint.MemoryTarget
		var outputs []Output
		for _, loc := range []string{"o.json", "o.yaml", "o.csv", "o.xml"} {
			tgt, out := memOut(loc, loc)
			targets = append(targets, tgt)
			outputs = append(outputs, out)
		}
		_, err := newEngine(format.NewDefault(), config.Accumulate, inputs[:2], outputs).Run(context.Background())
		if err != nil {
			return nil, err
		}
		_, err = newEngine(format.NewDefault(), config.Accumulate, inputs, outputs).Run(context.Background())
		return targets, err
	}

	syncTargets, syncErr := build(New)
	asyncTargets, asyncErr := build(NewAsync)

	require.Error(t, syncErr)
	require.Error(t, asyncErr)
	assert.Equal(t, positions(syncErr), positions(asyncErr))
	assert.Equal(t, syncErr.Error(), asyncErr.Error())
	for i := range syncTargets {
		assert.NotEmpty(t, syncTargets[i].Bytes())
		assert.Equal(t, string(syncTargets[i].Bytes()), string(asyncTargets[i].Bytes()))
	}
}

func TestReadAllCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, newEngine := range engines {
		t.Run(name, func(t *testing.T) {
			log := &testutil.OpenLog{}
			inputs := []Input{stub("a", "a.json", "1", log), stub("b", "b.json", "2", log)}

			_, err := newEngine(format.NewDefault(), config.Accumulate, inputs, nil).ReadAll(ctx)
			var pe *PipelineError
			require.ErrorAs(t, err, &pe)
			assert.Len(t, pe.Errors, 2)
			for _, ie := range pe.Errors {
				assert.True(t, ie.Canceled())
			}
			assert.Empty(t, log.Opened())

			_, err = newEngine(format.NewDefault(), config.FastFail, inputs, nil).ReadAll(ctx)
			var ie *ItemError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, 0, ie.Position)
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestWriteCancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := &testutil.CancelingTarget{MemoryTarget: endpoint.NewMemoryTarget("first", "a.json"), Cancel: cancel}
	second, secondOut := memOut("second", "b.json")
	e := New(format.NewDefault(), config.Accumulate, nil, []Output{{Target: first}, secondOut})

	err := e.WriteValues(ctx, []value.Value{value.Int(1)})
	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	require.Len(t, pe.Errors, 1)
	assert.Equal(t, 1, pe.Errors[0].Position)
	assert.True(t, pe.Errors[0].Canceled())

	assert.Equal(t, "[\n  1\n]\n", string(first.Bytes()))
	assert.False(t, second.Written(), "an unattempted output receives nothing")
}

type setting struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestReadAllInto(t *testing.T) {
	inputs := []Input{
		stub("a", "a.json", `{"name":"x","value":1}`, nil),
		stub("b", "b.yaml", "name: y\nvalue: 2\n", nil),
	}
	got, err := ReadAllInto[setting](context.Background(), New(format.NewDefault(), config.Accumulate, inputs, nil))
	require.NoError(t, err)
	assert.Equal(t, []setting{{"x", 1}, {"y", 2}}, got)

	inputs = append(inputs, stub("c", "c.json", `{"value":"nope"}`, nil))
	_, err = ReadAllInto[setting](context.Background(), New(format.NewDefault(), config.Accumulate, inputs, nil))
	assert.True(t, IsStage(err, StageConvert))
	assert.Equal(t, []int{2}, positions(err))
}

func TestRunReport(t *testing.T) {
	log := &testutil.OpenLog{}
	_, out := memOut("out", "out.json")
	inputs := []Input{stub("a", "a.json", "1", log), stub("b", "b.json", "{", log), stub("c", "c.json", "3", log)}
	e := New(format.NewDefault(), config.FastFail, inputs, []Output{out}, WithClock(NewClockAt(10)))

	report, err := e.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, int64(11), report.Seq)
	assert.False(t, report.OK())

	var statuses []Status
	for _, o := range report.Outcomes {
		statuses = append(statuses, o.Status)
	}
	assert.Equal(t, []Status{StatusOK, StatusFailed, StatusSkipped, StatusSkipped}, statuses)
	assert.Equal(t, "json", report.Outcomes[0].Format)
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, "b", report.Failed()[0].ID)
}

func TestNewFreezesRegistry(t *testing.T) {
	reg := format.NewDefault()
	New(reg, config.Accumulate, nil, nil)

	err := reg.RegisterCustom(format.Markdown())
	var fe *format.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, format.ErrCodeRegistryFrozen, fe.Code)
}

func TestFormatOrderOption(t *testing.T) {
	reg := format.NewDefault()
	require.NoError(t, reg.RegisterCustom(format.NewCustom("rawjson", []string{"json"}, format.StrategyFuncs{
		DecodeFunc: func(data []byte) (value.Value, error) { return value.String(data), nil },
	})))
	inputs := []Input{stub("in", "x.json", `{"a":1}`, nil)}

	_, err := New(reg, config.FastFail, inputs, nil).ReadAll(context.Background())
	assert.True(t, format.IsAmbiguous(err))

	vals, err := New(reg, config.FastFail, inputs, nil, WithFormatOrder(format.Custom("rawjson"))).ReadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, value.String(`{"a":1}`), vals[0])
}

func TestItemErrorMessage(t *testing.T) {
	ie := &ItemError{Stage: StageDecode, ID: "people", Position: 2, Location: "people.csv", Err: errors.New("bad row")}
	assert.Equal(t, `input "people" (#2) people.csv: decode: bad row`, ie.Error())

	ie = &ItemError{Stage: StageWrite, ID: "out", Position: 0, Err: errors.New("disk full")}
	assert.Equal(t, `output "out" (#0): write: disk full`, ie.Error())
}

func TestWriteValueBroadcastsAsIs(t *testing.T) {
	t1, o1 := memOut("o1", "o.json")
	t2, o2 := memOut("o2", "o.toml")
	e := New(format.NewDefault(), config.FastFail, nil, []Output{o1, o2})

	require.NoError(t, e.WriteValue(context.Background(), value.NewObject(value.P("a", value.Int(1)))))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", string(t1.Bytes()))
	assert.Equal(t, "a = 1\n", string(t2.Bytes()))
}
