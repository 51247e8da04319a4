package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct{ n int }

func TestOnEmitUnsubscribe(t *testing.T) {
	b := New()
	var a, c []int
	offA := On(b, func(_ context.Context, p ping) { a = append(a, p.n) })
	On(b, func(_ context.Context, p ping) { c = append(c, p.n) })

	Emit(context.Background(), b, ping{1})
	offA()
	offA()
	Emit(context.Background(), b, ping{2})

	require.Equal(t, []int{1}, a)
	require.Equal(t, []int{1, 2}, c)
}

func TestGlobalBus(t *testing.T) {
	Publish(context.Background(), ping{0})

	b := New()
	Use(b)
	defer Use(nil)

	var got int
	off := Subscribe(func(_ context.Context, p ping) { got = p.n })
	defer off()
	Publish(context.Background(), ping{7})
	Publish(context.Background(), "ignored")
	require.Equal(t, 7, got)
}
