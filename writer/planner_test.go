package writer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kevwan/flowexec/counters"
	"github.com/kevwan/flowexec/ir"
)

func TestPlannerExecuteEmptyBundleYieldsFreshIDAndEmptyCounters(t *testing.T) {
	p := NewPlanner()
	p.Start()
	res, err := p.Execute(context.Background(), nil, nil).Block(context.Background())
	assert.NoError(t, err)
	assert.False(t, res.Counters.IsNonZero())
	assert.NotZero(t, res.SubmissionID)
}

func TestPlannerExecuteResolvesRegisteredProducers(t *testing.T) {
	p := NewPlanner()
	key := counters.Key{Group: "g", Name: "n"}
	p.RegisterProducer("pipeA", func() (any, counters.Counters, error) {
		return []int{1, 2, 3}, counters.Single(key, 3), nil
	})

	res, err := p.Execute(context.Background(), nil, []ir.Descriptor{ir.ForceDescriptor("pipeA")}).
		Block(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(3), res.Counters.Apply(key))

	v, err := p.GetForced(context.Background(), nil, "pipeA").Block(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, v)
}

func TestPlannerGetForcedBeforeWriteFails(t *testing.T) {
	p := NewPlanner()
	_, err := p.GetForced(context.Background(), nil, "never-written").Block(context.Background())
	assert.ErrorIs(t, err, ErrPipeNotWritten)
}

func TestPlannerEachCallIsRecordedAsABundle(t *testing.T) {
	p := NewPlanner()
	p.Execute(context.Background(), nil, []ir.Descriptor{ir.ForceDescriptor("a")}).Block(context.Background())
	p.Execute(context.Background(), nil, []ir.Descriptor{ir.ForceDescriptor("b")}).Block(context.Background())
	assert.Equal(t, 2, p.ExecuteCount())
}

func TestPlannerStartAndFinishedTrackLifecycle(t *testing.T) {
	p := NewPlanner()
	assert.False(t, p.Started())
	p.Start()
	assert.True(t, p.Started())

	assert.False(t, p.IsFinished())
	assert.NoError(t, p.Finished())
	assert.True(t, p.IsFinished())
}

func TestPlannerExecuteFlowDefWithoutHookFails(t *testing.T) {
	p := NewPlanner()
	_, err := p.ExecuteFlowDef(context.Background(), nil, func(any) any { return nil }).
		Block(context.Background())
	assert.ErrorIs(t, err, ErrNoFlowDefSupport)
}

func TestPlannerExecuteFlowDefWithHookSucceeds(t *testing.T) {
	key := counters.Key{Group: "flow", Name: "submitted"}
	p := NewPlanner().WithFlowDef(func(conf, built any) (any, counters.Counters, error) {
		return built, counters.Single(key, 1), nil
	})

	res, err := p.ExecuteFlowDef(context.Background(), "conf", func(conf any) any { return conf }).
		Block(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), res.Counters.Apply(key))
}
