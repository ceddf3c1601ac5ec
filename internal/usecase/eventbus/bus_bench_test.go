package eventbus

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"salesintel/internal/domain"
)

func BenchmarkPublish(b *testing.B) {
	for _, subs := range []int{1, 10} {
		b.Run(benchName(subs), func(b *testing.B) {
			bus := NewWithBuffer(slog.New(slog.NewTextHandler(io.Discard, nil)), b.N+1)
			for i := 0; i < subs; i++ {
				bus.SubscribeAll(func(context.Context, domain.Event) {})
			}
			ctx := context.Background()
			event := domain.Event{Type: domain.EventAgentRunCompleted, Timestamp: time.Now()}

			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				bus.Publish(ctx, event)
			}
			bus.Close()
		})
	}
}

func benchName(subs int) string {
	if subs == 1 {
		return "1-subscriber"
	}
	return "10-subscribers"
}
