package pipeline

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThenPassesOutputAlong(t *testing.T) {
	parse := Stage[string, int]{Name: "parse", Run: func(_ context.Context, s string) (int, error) {
		return strconv.Atoi(s)
	}}
	double := Stage[int, int]{Name: "double", Run: func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	}}

	out, err := Then(parse, double).Execute(context.Background(), "21")
	require.NoError(t, err)
	assert.Equal(t, 42, out)
}

func TestThenStopsAtFailingStage(t *testing.T) {
	boom := errors.New("boom")
	secondRan := false

	first := Stage[struct{}, int]{Name: "create-new-orders", Run: func(context.Context, struct{}) (int, error) {
		return 0, boom
	}}
	second := Stage[int, int]{Name: "update-old-orders", Run: func(context.Context, int) (int, error) {
		secondRan = true
		return 1, nil
	}}

	_, err := Then(first, second).Execute(context.Background(), struct{}{})
	require.Error(t, err)
	assert.False(t, secondRan)
	assert.ErrorIs(t, err, boom)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "create-new-orders", stageErr.Stage)
}

func TestNestedFailureKeepsInnermostStage(t *testing.T) {
	ok := Stage[int, int]{Name: "a", Run: func(_ context.Context, n int) (int, error) { return n, nil }}
	fail := Stage[int, int]{Name: "b", Run: func(context.Context, int) (int, error) { return 0, errors.New("nope") }}
	last := Stage[int, int]{Name: "c", Run: func(_ context.Context, n int) (int, error) { return n, nil }}

	_, err := Then(Then(ok, fail), last).Execute(context.Background(), 1)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "b", stageErr.Stage)
}
