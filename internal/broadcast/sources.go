package broadcast

import (
	"context"

	"github.com/mycelian/postybirb/internal/events"
	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/store"
)

// WatchStore wires the four client events to the store. The returned func unsubscribes all of them.
func WatchStore(h *Hub, bus *events.Bus, st store.Store) func() {
	unsubs := []func(){
		h.Watch(bus, EventSubmissionUpdates,
			[]model.EntityKind{model.KindSubmission, model.KindWebsiteOption, model.KindSubmissionFile},
			func(ctx context.Context) (any, error) { return st.Submissions().List(ctx) }),
		h.Watch(bus, EventAccountUpdates,
			[]model.EntityKind{model.KindAccount},
			func(ctx context.Context) (any, error) { return st.Accounts().List(ctx) }),
		h.Watch(bus, EventDirectoryWatcherUpdates,
			[]model.EntityKind{model.KindDirectoryWatcher},
			func(ctx context.Context) (any, error) { return st.DirectoryWatchers().List(ctx) }),
		h.Watch(bus, EventSettingsUpdates,
			[]model.EntityKind{model.KindSettings},
			func(ctx context.Context) (any, error) { return st.Settings().List(ctx) }),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
