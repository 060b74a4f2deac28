package service

// Broadcaster pushes live events to a form creator's dashboard feed.
// The ws hub implements it; the interface lives here to avoid an
// import cycle.
type Broadcaster interface {
	BroadcastToCreator(formID string, msgType string, payload interface{})
}
