// Package syncqueue replays mutations that could not reach the remote
// store.
//
// Every task mutation the facade could not send (because the remote was
// unreachable, or because the call failed) becomes a PendingAction
// appended to the queue. The queue is part of application state and is
// persisted through the local mirror after every change, so it survives
// restarts.
//
// # Replay
//
// A replay pass walks the queue once, in enqueue order, issuing one remote
// call per action:
//
//	add            -> InsertTask (upsert)
//	update, toggle -> UpdateTask with the recorded patch
//	delete         -> DeleteTask
//
// Successful actions are removed. A failed action is either kept for the
// next pass (the default) or dropped, depending on Config.RequeueFailed.
// Once an action for a task has been kept, later actions for the same task
// are kept without being attempted, so a task's writes always reach the
// remote in the order they were made.
//
// After a non-empty pass the queue performs exactly one full refresh from
// the remote store. Actions still pending are applied on top of the
// refreshed list so optimistic local changes stay visible. An empty queue
// makes no remote calls at all.
//
// Replay runs automatically on every offline to online transition once the
// queue is attached to a connectivity.Monitor:
//
//	q, err := syncqueue.New(state, mirror, store, logger)
//	if err != nil {
//	    return err
//	}
//	unsubscribe := q.Attach(ctx, monitor)
//	defer unsubscribe()
//
// Passes and facade mutations are serialized through appstate.State, so a
// pass never interleaves with a local write.
package syncqueue
