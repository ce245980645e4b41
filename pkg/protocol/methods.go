package protocol

// RPC method name constants for the WebSocket gateway.

const (
	MethodConnect = "connect"
	MethodHealth  = "health"
	MethodStatus  = "status"

	MethodChatSend    = "chat.send"
	MethodChatHistory = "chat.history"
	MethodChatAbort   = "chat.abort"
	MethodChatInject  = "chat.inject"

	MethodSessionsList   = "sessions.list"
	MethodSessionsDelete = "sessions.delete"
	MethodSessionsReset  = "sessions.reset"

	MethodSkillsList = "skills.list"

	MethodDevicePairRequest = "device.pair.request"
	MethodDevicePairApprove = "device.pair.approve"
)
