package engine

import (
	"fmt"
	"testing"

	"go.uber.org/zap"
	"pgregory.net/rapid"

	"ticksim/internal/domain"
	"ticksim/internal/store"
)

// For any mix of orders and market ticks, every order's history conserves
// volume, transitions legally, and its trades sum to its traded volume.
func TestOrderLifecycle_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		orders := store.NewOrderStore()
		trades := store.NewTradeStore()
		fillCap := rapid.Int64Range(1, 25).Draw(t, "fillCap")
		eng := NewMatchingEngine(zap.NewNop(), orders, trades, fillCap)

		eng.OnSnapshot(&domain.MarketDepthSnapshot{
			InstrumentID: "X0001",
			BidPrice:     1340,
			AskPrice:     1341,
		})

		n := rapid.IntRange(1, 20).Draw(t, "orders")
		for i := 0; i < n; i++ {
			dir := domain.DirectionBuy
			if rapid.Bool().Draw(t, fmt.Sprintf("sell%d", i)) {
				dir = domain.DirectionSell
			}
			_, err := eng.Submit(Submission{
				ClientKey:    domain.ClientKey{OrderRef: fmt.Sprintf("r%d", i), FrontID: 1, SessionID: 1},
				InstrumentID: "X0001",
				Direction:    dir,
				LimitPrice:   rapid.Float64Range(1330, 1350).Draw(t, fmt.Sprintf("price%d", i)),
				Volume:       rapid.Int64Range(1, 100).Draw(t, fmt.Sprintf("volume%d", i)),
				ClientID:     "client-1",
			}, nil)
			if err != nil {
				t.Fatalf("submit %d: %v", i, err)
			}
		}

		ticks := rapid.IntRange(0, 30).Draw(t, "ticks")
		for i := 0; i < ticks; i++ {
			bid := rapid.Float64Range(1330, 1350).Draw(t, fmt.Sprintf("bid%d", i))
			eng.OnSnapshot(&domain.MarketDepthSnapshot{
				InstrumentID: "X0001",
				BidPrice:     bid,
				AskPrice:     bid + 1,
			})
		}

		tradeVolumes := make(map[string]int64)
		for _, tr := range trades.ByInstrument("X0001") {
			tradeVolumes[tr.SystemID] += tr.Volume
			if tr.Volume < 1 || tr.Volume > fillCap {
				t.Fatalf("trade volume %d outside (0, %d]", tr.Volume, fillCap)
			}
		}

		for _, o := range orders.Snapshot() {
			prevTraded := int64(0)
			for i, entry := range o.History {
				if entry.TradedVolume+entry.RemainingVolume != o.Volume {
					t.Fatalf("order %s entry %d breaks conservation: %d + %d != %d",
						o.SystemID, i, entry.TradedVolume, entry.RemainingVolume, o.Volume)
				}
				if entry.TradedVolume < prevTraded {
					t.Fatalf("order %s entry %d: traded volume went backwards", o.SystemID, i)
				}
				prevTraded = entry.TradedVolume
				if entry.Status.Terminal() && i != len(o.History)-1 {
					t.Fatalf("order %s: terminal entry %d is not last", o.SystemID, i)
				}
			}
			last, err := o.Last()
			if err != nil {
				t.Fatalf("order %s: %v", o.SystemID, err)
			}
			if tradeVolumes[o.SystemID] != last.TradedVolume {
				t.Fatalf("order %s: trades sum to %d but history says %d",
					o.SystemID, tradeVolumes[o.SystemID], last.TradedVolume)
			}
		}
	})
}
