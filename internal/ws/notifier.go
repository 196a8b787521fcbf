package ws

import "github.com/amogham/storefront/internal/admin"

// Dashboard event types.
const (
	EventNewOrders = "order.new"
	EventDialog    = "dialog"
)

// Dashboard pushes admin notifications and dialogs to the dashboard room.
type Dashboard struct {
	hub *Hub
}

var (
	_ admin.Notifier = (*Dashboard)(nil)
	_ admin.Dialogs  = (*Dashboard)(nil)
)

func NewDashboard(hub *Hub) *Dashboard {
	return &Dashboard{hub: hub}
}

func (d *Dashboard) NewOrders(pending int) {
	d.hub.Publish(TopicAdmin, EventNewOrders, map[string]int{"pending": pending})
}

// Show sends dlg to its operator's sockets, or to all of them when the
// dialog names no operator.
func (d *Dashboard) Show(dlg admin.Dialog) {
	d.hub.PublishTo(TopicAdmin, dlg.Operator, EventDialog, dlg)
}
