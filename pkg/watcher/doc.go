// Package watcher fans filesystem changes out to connected clients.
//
// A Hub starts unarmed. The first Arm call subscribes once, recursively, to
// changes below the root; the subscription then lives as long as the
// process. Raw events are classified, filtered and delivered to every
// registered listener:
//
//	raw op         kind
//	CREATE         create
//	WRITE          modify
//	REMOVE         remove
//	RENAME         rename
//	CHMOD          (dropped)
//
// Listeners are called synchronously on the watch goroutine and must not
// block. Each listener sees events in the order they were classified.
// Once Unsubscribe returns, the listener is never called again. A listener
// must not unsubscribe itself from inside its callback.
package watcher
