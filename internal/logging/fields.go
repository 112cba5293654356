package logging

const (
	// Connection
	FieldConnID     = "conn_id"
	FieldRemoteAddr = "remote_addr"
	FieldNickname   = "nickname"

	// Routing
	FieldEvent      = "event"
	FieldUserCount  = "user_count"
	FieldRecipients = "recipients"
	FieldFailed     = "failed"

	// Service
	FieldService = "service"
)
