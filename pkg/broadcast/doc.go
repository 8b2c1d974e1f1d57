// Package broadcast is a typed one-to-many change feed.
//
// A Feed fans every published value out to its subscribers. Subscribers never
// block the publisher: each subscription holds at most one pending value and a
// newer value replaces an unread older one, so a slow reader always observes
// the latest state rather than a backlog.
//
//	feed := broadcast.NewFeed[State]()
//	defer feed.Close()
//
//	sub := feed.Subscribe(ctx)
//	defer sub.Close()
//
//	feed.Publish(Ready)
//	for s := range sub.C() {
//		fmt.Println(s)
//	}
//
// A new subscription immediately receives the most recent value, if any.
// Subscriptions end when their context is cancelled, when Close is called
// on them, or when the feed is closed; their channel is closed in every case.
package broadcast
