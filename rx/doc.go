// Package rx provides the small reactive toolkit the view-models are built on.
//
// Sources come in two flavours. A Subject delivers each value to the observers
// subscribed at the time of Next and nothing to later subscribers (fire-once).
// A Behavior remembers the latest value and replays it to every new subscriber
// (latest-value). Operators such as CombineLatest2, TakeWhen and SwitchMap keep
// per-subscription state, so subscribing twice builds two independent pipelines.
//
// Remote work goes through Call, which runs one operation, reports busy/idle
// around it and materializes the outcome as a Notification so a failure never
// terminates the surrounding pipeline. Values, Errors and Runs split a
// Notification stream back into UI-facing signals.
//
// Every Subscribe returns a Disposable; a Bag collects them so a screen can drop
// all of its subscriptions in one call when it is destroyed.
package rx
