// Package realtime fans layout events out to connected editors and viewers.
//
// A [Hub] groups listeners by topic, one topic per community. Listeners are
// either WebSocket clients ([Hub.ServeWS]) or in-process subscribers
// ([Hub.Subscribe]); the server uses the latter to mark widgets deleted in
// open edit sessions.
//
// Events are JSON objects:
//
//	{"type": "widget_deleted", "community_id": "smash", "data": {"type": "youtube", "id": "7"}}
//
// Each WebSocket client has a small send buffer. A client that falls behind
// misses events rather than slowing the broadcaster down.
package realtime
