package execution

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/sparsecore/progress"
	"github.com/viant/sparsecore/service/allocator"
	"github.com/viant/sparsecore/service/pending"
)

type matrix struct {
	name string
}

func newContext(t *testing.T, mode Mode, options ...Option) *Context {
	t.Helper()
	c := New(options...)
	require.NoError(t, c.Init(mode))
	return c
}

func TestContext_Init(t *testing.T) {
	testCases := []struct {
		name      string
		mode      Mode
		expectErr error
	}{
		{name: "blocking", mode: Blocking},
		{name: "nonblocking", mode: NonBlocking},
		{name: "unknown", mode: Mode(7), expectErr: ErrInvalidValue},
		{name: "negative", mode: Mode(-1), expectErr: ErrInvalidValue},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := New()
			err := c.Init(tc.mode)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				assert.Equal(t, StateUninitialized, c.State())
				assert.Equal(t, InvalidValue, c.Diagnostics().Info)
				assert.Equal(t, "Init", c.Diagnostics().Where)
				assert.Contains(t, c.Diagnostics().File, "context_test.go")
				_, err = c.Allocate(1, 1)
				assert.ErrorIs(t, err, ErrMisuse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StateInitialized, c.State())
			assert.Equal(t, tc.mode, c.Mode())
			assert.False(t, c.Diagnostics().Failed())
			assert.EqualValues(t, 0, c.Allocations())
			assert.Equal(t, 0, c.Pending())
		})
	}
}

func TestContext_InitInvalidKeepsState(t *testing.T) {
	c := newContext(t, NonBlocking)
	a := &matrix{"a"}
	require.NoError(t, c.Register(a, pending.Func(func(ctx context.Context) error { return nil })))
	block, err := c.Allocate(4, 4)
	require.NoError(t, err)

	assert.ErrorIs(t, c.Init(Mode(42)), ErrInvalidValue)
	assert.Equal(t, StateInitialized, c.State())
	assert.Equal(t, NonBlocking, c.Mode())
	assert.Equal(t, 1, c.Pending())
	assert.EqualValues(t, 1, c.Allocations())
	assert.NoError(t, c.Free(block))
}

func TestContext_ReInitResets(t *testing.T) {
	c := newContext(t, NonBlocking)
	ran := false
	require.NoError(t, c.Register(&matrix{"a"}, pending.Func(func(ctx context.Context) error {
		ran = true
		return nil
	})))
	ws, err := c.Workspace()
	require.NoError(t, err)
	_, err = ws.Mark(16)
	require.NoError(t, err)
	require.NoError(t, c.EnableFaultInjection(5))
	assert.Error(t, c.Init(Mode(9)))
	assert.True(t, c.Diagnostics().Failed())

	require.NoError(t, c.Init(Blocking))
	assert.Equal(t, Blocking, c.Mode())
	assert.Equal(t, 0, c.Pending())
	assert.False(t, ran, "discarded work never runs")
	assert.EqualValues(t, 0, c.Allocations())
	assert.False(t, c.Diagnostics().Failed())
	enabled, _ := c.FaultInjection()
	assert.False(t, enabled)
	assert.Equal(t, 0, ws.MarkSize(), "previous workspace was released")
}

func TestContext_Finalize(t *testing.T) {
	c := newContext(t, NonBlocking)
	ran := false
	require.NoError(t, c.Register(&matrix{"a"}, pending.Func(func(ctx context.Context) error {
		ran = true
		return nil
	})))
	ws, err := c.Workspace()
	require.NoError(t, err)
	_, err = ws.Work(128)
	require.NoError(t, err)
	leaked, err := c.Allocate(1, 1)
	require.NoError(t, err)

	require.NoError(t, c.Finalize())
	assert.Equal(t, StateFinalized, c.State())
	assert.False(t, ran)
	assert.Equal(t, 0, c.Pending())
	assert.EqualValues(t, 1, c.Allocations(), "leaks remain diagnosable")
	assert.Equal(t, 1, c.Progress().Discarded)

	assert.ErrorIs(t, c.Finalize(), ErrMisuse)
	assert.Equal(t, Misuse, c.Diagnostics().Info)
	assert.Equal(t, "Finalize", c.Diagnostics().Where)

	assert.ErrorIs(t, c.Free(leaked), ErrMisuse)
	assert.ErrorIs(t, c.Wait(context.Background()), ErrMisuse)
	_, err = c.Release(&matrix{})
	assert.ErrorIs(t, err, ErrMisuse)

	require.NoError(t, c.Init(NonBlocking))
	assert.EqualValues(t, 0, c.Allocations())
	assert.NoError(t, leaked.Release(), "blocks outlive their lifecycle as owning handles")
}

func TestContext_MisuseBeforeInit(t *testing.T) {
	c := New()
	ctx := context.Background()
	work := pending.Func(func(ctx context.Context) error { return nil })

	_, err := c.Allocate(1, 1)
	assert.ErrorIs(t, err, ErrMisuse)
	assert.ErrorIs(t, c.Free(nil), ErrMisuse)
	assert.ErrorIs(t, c.Register(&matrix{}, work), ErrMisuse)
	assert.ErrorIs(t, c.Submit(ctx, &matrix{}, work), ErrMisuse)
	assert.ErrorIs(t, c.Wait(ctx), ErrMisuse)
	assert.ErrorIs(t, c.Finalize(), ErrMisuse)
	assert.ErrorIs(t, c.EnableFaultInjection(1), ErrMisuse)
	assert.ErrorIs(t, c.DisableFaultInjection(), ErrMisuse)
	assert.ErrorIs(t, c.SetTrace(true), ErrMisuse)
	_, err = c.Workspace()
	assert.ErrorIs(t, err, ErrMisuse)
	assert.Equal(t, 0, c.Pending())
	assert.EqualValues(t, 0, c.Allocations())

	diagnostics := c.Diagnostics()
	assert.Equal(t, Misuse, diagnostics.Info)
	assert.Equal(t, "Workspace", diagnostics.Where)
	assert.NotEmpty(t, diagnostics.File)
	assert.NotZero(t, diagnostics.Line)
}

func TestContext_Allocate(t *testing.T) {
	c := newContext(t, Blocking)

	block, err := c.Allocate(0, 0)
	require.NoError(t, err)
	require.NotNil(t, block)
	assert.Equal(t, 1, block.Len())
	assert.EqualValues(t, 1, c.Allocations())

	_, err = c.Allocate(math.MaxUint64, 3)
	assert.ErrorIs(t, err, ErrOutOfMemory)
	assert.EqualValues(t, 1, c.Allocations())
	assert.Equal(t, OutOfMemory, c.Diagnostics().Info)
	assert.Equal(t, "Allocate", c.Diagnostics().Where)
	assert.Contains(t, c.Diagnostics().File, "context_test.go", "failures point at the caller")

	require.NoError(t, c.Free(block))
	assert.EqualValues(t, 0, c.Allocations())
	assert.ErrorIs(t, c.Free(block), ErrMisuse)
	assert.ErrorIs(t, c.Free(block), allocator.ErrReleased)
	assert.EqualValues(t, 0, c.Allocations())

	other := newContext(t, Blocking)
	foreign, err := other.Allocate(1, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Free(foreign), allocator.ErrForeignBlock)
	assert.EqualValues(t, 1, other.Allocations())
}

func TestContext_FaultInjection(t *testing.T) {
	c := newContext(t, NonBlocking)
	const budget = 4
	require.NoError(t, c.EnableFaultInjection(budget))

	for i := 0; i < budget; i++ {
		_, err := c.Allocate(2, 8)
		require.NoError(t, err)
		_, remaining := c.FaultInjection()
		assert.EqualValues(t, budget-i-1, remaining)
	}
	_, err := c.Allocate(2, 8)
	assert.ErrorIs(t, err, ErrOutOfMemory)
	assert.EqualValues(t, budget, c.Allocations())

	require.NoError(t, c.DisableFaultInjection())
	_, err = c.Allocate(2, 8)
	assert.NoError(t, err)
	assert.EqualValues(t, budget+1, c.Allocations())
}

func TestContext_WithStrategy(t *testing.T) {
	pool, err := allocator.NewPool(&allocator.Heap{}, allocator.DefaultPoolConfig())
	require.NoError(t, err)
	c := newContext(t, NonBlocking, WithStrategy(pool), WithAllocatorConfig(allocator.Config{MaxIndex: 1024}))

	_, err = c.Allocate(1025, 1)
	assert.ErrorIs(t, err, ErrOutOfMemory)

	block, err := c.Allocate(16, 4)
	require.NoError(t, err)
	require.NoError(t, c.Free(block))
	assert.Equal(t, 1, pool.Cached())
	require.NoError(t, c.SetTrace(true))
	require.NoError(t, c.SetTrace(false))
}

func TestContext_StrategyFaultsSurviveInit(t *testing.T) {
	base := allocator.NewFaulty(&allocator.Heap{}, 1)
	c := newContext(t, NonBlocking, WithStrategy(base))
	require.NoError(t, c.EnableFaultInjection(0))
	_, err := c.Allocate(1, 1)
	assert.ErrorIs(t, err, ErrOutOfMemory)

	require.NoError(t, c.Init(NonBlocking))
	enabled, _ := c.FaultInjection()
	assert.False(t, enabled, "context fault injection is reset")

	_, err = c.Allocate(1, 1)
	require.NoError(t, err)
	_, err = c.Allocate(1, 1)
	assert.ErrorIs(t, err, ErrOutOfMemory, "a faulty base strategy keeps its own budget")
	assert.EqualValues(t, 0, base.Remaining())
}

func TestContext_Report(t *testing.T) {
	c := newContext(t, Blocking)
	err := c.Report(InvalidValue, 3, 7, "setElement", "index (%d,%d) out of range", 3, 7)
	assert.ErrorIs(t, err, ErrInvalidValue)

	diagnostics := c.Diagnostics()
	assert.Equal(t, InvalidValue, diagnostics.Info)
	assert.Equal(t, "setElement", diagnostics.Where)
	assert.EqualValues(t, 3, diagnostics.Row)
	assert.EqualValues(t, 7, diagnostics.Col)
	assert.Contains(t, diagnostics.File, "context_test.go")
	assert.Contains(t, diagnostics.String(), "index (3,7) out of range")

	assert.Nil(t, c.Report(Success, 0, 0, "noop", "ignored"))
}

func TestContext_FromContext(t *testing.T) {
	c := newContext(t, NonBlocking)
	ctx := WithContext(context.Background(), c)
	actual, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, c, actual)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestParseMode(t *testing.T) {
	testCases := []struct {
		value     string
		expect    Mode
		expectErr bool
	}{
		{value: "blocking", expect: Blocking},
		{value: "Blocking", expect: Blocking},
		{value: "nonblocking", expect: NonBlocking},
		{value: "non-blocking", expect: NonBlocking},
		{value: "", expect: NonBlocking},
		{value: "eager", expectErr: true},
	}
	for _, tc := range testCases {
		mode, err := ParseMode(tc.value)
		if tc.expectErr {
			assert.ErrorIs(t, err, ErrInvalidValue)
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, tc.expect, mode)
	}
	assert.Equal(t, "mode(5)", Mode(5).String())
}

func TestInfoOf(t *testing.T) {
	assert.Equal(t, Success, InfoOf(nil))
	assert.Equal(t, OutOfMemory, InfoOf(allocator.ErrOutOfMemory))
	assert.Equal(t, Misuse, InfoOf(ErrMisuse))
	assert.Equal(t, InvalidValue, InfoOf(ErrInvalidValue))
	assert.Equal(t, DeferredFailure, InfoOf(errors.New("user failure")))
	for _, info := range []Info{InvalidValue, OutOfMemory, Misuse, DeferredFailure} {
		assert.Equal(t, info, InfoOf(info.Err()))
		assert.NotEqual(t, "unknown", info.String())
	}
}

func TestContext_ProgressListener(t *testing.T) {
	var last progress.Progress
	c := newContext(t, NonBlocking, WithProgressListener(func(p progress.Progress) {
		last = p
	}))
	require.NoError(t, c.Register(&matrix{"a"}, pending.Func(func(ctx context.Context) error { return nil })))
	assert.Equal(t, 1, last.Pending)
	require.NoError(t, c.Wait(context.Background()))
	assert.Equal(t, 0, last.Pending)
	assert.Equal(t, 1, last.Completed)
}
