// Package syncer implements one-way calendar reconciliation.
//
// The package is built around a pure reconciliation core: given the events
// of a source calendar and the tool-managed events of a target calendar
// within the same time window, Reconcile computes the create, update and
// delete operations needed to converge the target with the source. Events
// are matched by a stable correlation key derived from the source system's
// unique identifier, never by title or time.
//
// Providers plug in through the Source and Target interfaces; the Syncer
// orchestrates a single run-to-completion pass:
//
//	s := syncer.New(source, target, syncer.Options{Logger: logger})
//	result, err := s.Run(ctx, syncer.Window{Start: from, End: to})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("created %d, updated %d, deleted %d\n",
//	    result.Created, result.Updated, result.Deleted)
package syncer
