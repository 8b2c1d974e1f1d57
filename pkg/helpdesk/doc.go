// Package helpdesk composes the session, mutation, submit and pager packages
// into one client for a presentation layer.
//
// A Client owns a single credential slot shared by every outgoing call. A call
// answered with 401 signs the session out through the session.Manager, unless
// the session was replaced while the call was in flight. Signing out drops
// every cached ticket projection, and every update attempt drops the
// projection of its ticket.
//
//	c, err := helpdesk.New("https://desk.example.com/api", helpdesk.WithStore(store))
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//	_ = c.Boot(ctx)
//	list := c.Tickets(pager.Filter{Status: "open"})
//	page, err := list.More(ctx)
package helpdesk
