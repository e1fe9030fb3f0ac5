// Package resource turns asynchronous fetches into reactive state.
//
// A Resource runs a fetch function on its own goroutine and exposes the
// outcome through three signals: status, data, and error. Reading any of
// them inside an effect or computed subscribes as usual, so views re-render
// when a fetch settles without any callback wiring.
//
// Invocations are token-guarded: starting a new fetch supersedes the
// in-flight one, whose result is then discarded on arrival. Combined with
// context cancellation this gives last-write-wins semantics under racing
// requests.
//
//	query := ripple.NewSignal("go")
//	results := resource.NewKeyed(
//	    func() string { return query.Get() },
//	    search.Run,
//	)
//
//	ripple.CreateEffect(func() ripple.Cleanup {
//	    if results.Loading() {
//	        spinner.Show()
//	    } else {
//	        render(results.Data())
//	    }
//	    return nil
//	})
package resource
