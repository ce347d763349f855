package sim

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/uartcon/pkg/console"
	"github.com/robotalks/uartcon/pkg/ring"
)

type syncBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timeout")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestUSARTRegisters(t *testing.T) {
	var out bytes.Buffer
	u := NewUSART(&out)
	require.False(t, u.RxReady())
	u.Deliver('a')
	require.True(t, u.RxReady())
	u.Deliver('b')
	require.Equal(t, uint64(1), u.Overruns())
	require.Equal(t, byte('b'), u.ReadData())
	require.False(t, u.RxReady())

	require.True(t, u.TxReady())
	u.Transmit('x')
	require.Equal(t, "x", out.String())
}

func TestUSARTTransmitWaitsCharTime(t *testing.T) {
	var out bytes.Buffer
	u := NewUSART(&out)
	u.CharTime = 5 * time.Millisecond
	start := time.Now()
	u.Transmit('a')
	require.False(t, u.TxReady())
	u.Transmit('b')
	require.True(t, time.Since(start) >= u.CharTime)
	require.Equal(t, "ab", out.String())
}

func TestTapDetachesFailingWriter(t *testing.T) {
	var tap Tap
	var good syncBuffer
	tap.Attach(&good)
	tap.Attach(failingWriter{})
	n, err := tap.Write([]byte("hi"))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	waitFor(t, func() bool { return tap.Len() == 1 })

	detach := tap.Attach(&good)
	detach()
	tap.Write([]byte("!"))
	waitFor(t, func() bool { return good.String() == "hi!" })
}

type blockingWriter struct {
	release chan struct{}
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	<-w.release
	return len(p), nil
}

func TestTapSlowWriterDropsWithoutBlocking(t *testing.T) {
	var tap Tap
	var fast syncBuffer
	tap.Attach(&fast)
	tap.Backlog = 2
	slow := &blockingWriter{release: make(chan struct{})}
	defer close(slow.release)
	tap.Attach(slow)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			tap.Write([]byte{'0' + byte(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Write blocked on a slow writer")
	}
	waitFor(t, func() bool { return fast.String() == "0123456789" })
	require.Zero(t, tap.Dropped()[0])
	require.True(t, tap.Dropped()[1] > 0)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken") }

func TestBoardEndToEnd(t *testing.T) {
	conf := DefaultBoardConfig
	conf.CharTime = 0
	board := NewBoard(conf)
	var out syncBuffer
	board.Output.Attach(&out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- board.Run(ctx) }()

	waitFor(t, func() bool { return strings.HasSuffix(out.String(), console.Prompt) })

	require.NoError(t, board.Inject(ctx, []byte("LED ON\r")))
	waitFor(t, func() bool { return strings.Contains(out.String(), console.LEDOnText+console.Prompt) })
	require.True(t, board.Pins.GetOutput(conf.LEDPin))

	require.NoError(t, board.Inject(ctx, []byte("TOGGLE\rSTATUS\r")))
	waitFor(t, func() bool { return strings.Contains(out.String(), console.StatusOffText+console.Prompt) })

	stats := board.Stats()
	require.Equal(t, uint64(3), stats.Console.Executed)
	require.False(t, stats.LED)
	require.Zero(t, stats.Port.Dropped)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("board did not stop")
	}
}

func TestCRLF(t *testing.T) {
	testCases := []struct {
		in   string
		last byte
		out  string
	}{
		{"LED ON\n", 0, "LED ON\r"},
		{"LED ON\r\n", 0, "LED ON\r"},
		{"\n", '\r', ""},
		{"\n\n", 0, "\r\r"},
		{"A\bB", 0, "A\bB"},
	}
	for _, tc := range testCases {
		out, _ := crlf([]byte(tc.in), tc.last)
		require.Equalf(t, tc.out, string(out), "%q", tc.in)
	}
}

func TestBoardFeed(t *testing.T) {
	conf := DefaultBoardConfig
	conf.CharTime = 0
	board := NewBoard(conf)
	var out syncBuffer
	board.Output.Attach(&out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- board.Run(ctx) }()

	err := board.Feed(ctx, strings.NewReader("LED ON\r\nSTATUS\n"))
	require.Equal(t, io.EOF, err)
	waitFor(t, func() bool { return strings.Contains(out.String(), console.StatusOnText+console.Prompt) })
	require.Equal(t, uint64(2), board.Stats().Console.Executed)
	require.Zero(t, board.Stats().Console.Unknown)

	cancel()
	require.NoError(t, <-errCh)
}

func TestIRQPacesDelivery(t *testing.T) {
	u := NewUSART(io.Discard)
	u.CharTime = 5 * time.Millisecond
	var lock sync.Mutex
	var got []byte
	q := NewIRQ(u, func() {
		lock.Lock()
		got = append(got, u.ReadData())
		lock.Unlock()
	}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	start := time.Now()
	require.NoError(t, q.Inject(ctx, []byte("abcde")))
	waitFor(t, func() bool {
		lock.Lock()
		defer lock.Unlock()
		return len(got) == 5
	})
	require.True(t, time.Since(start) >= 4*u.CharTime)
	require.Equal(t, "abcde", string(got))
}

func TestBoardLineHoldsWhileQueueFull(t *testing.T) {
	conf := DefaultBoardConfig
	conf.CharTime = 0
	board := NewBoard(conf)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// interrupt context only, nothing drains the queue yet.
	go board.IRQ.Run(ctx)

	burst := make([]byte, 100)
	for i := range burst {
		burst[i] = byte(i)
	}
	require.NoError(t, board.Inject(ctx, burst))
	waitFor(t, board.Port.Full)
	time.Sleep(10 * time.Millisecond)
	require.Zero(t, board.Port.Stats().Dropped)

	for i := range burst {
		b, err := board.Port.Reader().ReadByteContext(ctx)
		require.NoError(t, err)
		require.Equalf(t, byte(i), b, "byte[%d] mismatch", i)
	}
	require.Zero(t, board.Port.Stats().Dropped)
}

func TestBoardWithoutLineHoldOverflows(t *testing.T) {
	conf := DefaultBoardConfig
	conf.CharTime = 0
	conf.LineHold = false
	board := NewBoard(conf)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go board.IRQ.Run(ctx)

	require.NoError(t, board.Inject(ctx, make([]byte, 100)))
	waitFor(t, func() bool { return board.Port.Stats().Dropped == 100-(ring.Capacity-1) })
	require.Equal(t, ring.Capacity-1, board.Port.Stats().Buffered)
}

func TestBoardBurstLongerThanQueue(t *testing.T) {
	board := NewBoard(DefaultBoardConfig)
	var out syncBuffer
	board.Output.Attach(&out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- board.Run(ctx) }()

	burst := strings.Repeat("STATUS\r", 20)
	require.True(t, len(burst) > ring.Capacity)
	require.NoError(t, board.Inject(ctx, []byte(burst)))
	deadline := time.Now().Add(5 * time.Second)
	for board.Stats().Console.Executed < 20 {
		require.True(t, time.Now().Before(deadline), "executed %d", board.Stats().Console.Executed)
		time.Sleep(time.Millisecond)
	}
	stats := board.Stats()
	require.Zero(t, stats.Port.Dropped)
	require.Zero(t, stats.Console.Unknown)
	require.Equal(t, 20, strings.Count(out.String(), console.StatusOffText))

	cancel()
	require.NoError(t, <-errCh)
}

func TestBoardAnswersWithStalledWriter(t *testing.T) {
	conf := DefaultBoardConfig
	conf.CharTime = 0
	board := NewBoard(conf)
	var out syncBuffer
	board.Attach(&out)
	board.Output.Backlog = 8
	stalled := &blockingWriter{release: make(chan struct{})}
	defer close(stalled.release)
	board.Attach(stalled)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- board.Run(ctx) }()

	require.NoError(t, board.Inject(ctx, []byte("STATUS\r")))
	waitFor(t, func() bool { return strings.HasSuffix(out.String(), console.StatusOffText+console.Prompt) })
	require.True(t, board.Output.Dropped()[1] > 0)

	cancel()
	require.NoError(t, <-errCh)
}
