package config

const (
	// MaxConversationNameLength is the maximum length for conversation names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxConversationNameLength = 255

	// MaxQuestionLength caps a single question. Prompts grow with history,
	// so one oversized question should not exhaust the model context.
	MaxQuestionLength = 10000

	// MinUsernameLength and MaxUsernameLength bound account names.
	MinUsernameLength = 3
	MaxUsernameLength = 64

	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 6

	// MaxPasswordLength is bcrypt's input limit in bytes.
	MaxPasswordLength = 72
)
