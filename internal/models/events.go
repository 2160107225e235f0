package models

// Real-time event names exchanged over the websocket gateway.
const (
	EventJoinChat          = "join_chat"
	EventLeaveChat         = "leave_chat"
	EventTypingStart       = "typing_start"
	EventTypingStop        = "typing_stop"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventNewMessage        = "new_message"
	EventChatUpdated       = "chat_updated"
	EventNotification      = "notification"
	EventError             = "error"
)
