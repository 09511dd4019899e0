package util

// Session store keys.
const (
	KeyRollNumber = "rollNumber"
	KeyUserName   = "userName"
)

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// ContextSessionID is the gin context key holding the current session id.
const ContextSessionID = "session_id"

const (
	MsgRegistrationFailed = "Failed to create user. Please try again."
	MsgFormLoadFailed     = "Failed to load form. Please try again."
)
