package persist

import "github.com/starsandbox/server/internal/core/event"

// Recorder accepts journal entries without blocking.
type Recorder interface {
	Record(e JournalEntry)
}

// SubscribeJournal records connection lifecycle events from the bus.
func SubscribeJournal(bus *event.Bus, rec Recorder) {
	event.Subscribe(bus, func(e event.ClientConnected) {
		rec.Record(JournalEntry{ConnID: e.ConnID, Kind: KindConnected, RemoteAddr: e.RemoteAddr})
	})
	event.Subscribe(bus, func(e event.ClientDisconnected) {
		rec.Record(JournalEntry{ConnID: e.ConnID, Kind: KindDisconnected})
	})
	event.Subscribe(bus, func(e event.DebugSubscriptionChanged) {
		rec.Record(JournalEntry{ConnID: e.ConnID, Kind: KindDebugToggle, DebugMode: e.Enabled})
	})
}
