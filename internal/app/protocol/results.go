package protocol

// AuthResult is the outcome of an authentication or registration attempt.
// Handlers map each value to a specific response package.
type AuthResult string

const (
	AuthSuccess           AuthResult = "SUCCESS"
	AuthUnknownUser       AuthResult = "UNKNOWN_USER"
	AuthIncorrectPassword AuthResult = "INCORRECT_PASSWORD"
	AuthExistingSession   AuthResult = "EXISTING_SESSION"
	AuthEmailInUse        AuthResult = "EMAIL_IN_USE"
	AuthIDInUse           AuthResult = "ID_IN_USE"

	// AuthUnauthorized rejects a banned account whose credentials matched.
	AuthUnauthorized AuthResult = "UNAUTHORIZED"

	// AuthServerError covers persistence failures during authentication.
	AuthServerError AuthResult = "SERVER_ERROR"
)

// ChannelActionResult is the outcome of a channel join, create, or
// delete operation.
type ChannelActionResult string

const (
	ChannelSuccess       ChannelActionResult = "SUCCESS"
	ChannelWrongPassword ChannelActionResult = "WRONG_PASSWORD"
	ChannelAlreadyMember ChannelActionResult = "ALREADY_MEMBER"
	ChannelFull          ChannelActionResult = "FULL"
	ChannelNotFound      ChannelActionResult = "NOT_FOUND"
	ChannelIDInUse       ChannelActionResult = "ID_IN_USE"
	ChannelNotAuthorized ChannelActionResult = "NOT_AUTHORIZED"
	ChannelCancelled     ChannelActionResult = "CANCELLED"
)

// GroupOpResult is the outcome of a group create or delete operation.
// Absence is always reported to the caller, never swallowed.
type GroupOpResult string

const (
	GroupSuccess       GroupOpResult = "SUCCESS"
	GroupNotFound      GroupOpResult = "NOT_FOUND"
	GroupIDInUse       GroupOpResult = "ID_IN_USE"
	GroupNotAuthorized GroupOpResult = "NOT_AUTHORIZED"
	GroupCancelled     GroupOpResult = "CANCELLED"
)

// PunishmentResult is the outcome of a moderation action. Unauthorized
// attempts are answered explicitly instead of silently dropped.
type PunishmentResult string

const (
	PunishmentSuccess       PunishmentResult = "SUCCESS"
	PunishmentNotFound      PunishmentResult = "NOT_FOUND"
	PunishmentNotAuthorized PunishmentResult = "NOT_AUTHORIZED"
	PunishmentServerError   PunishmentResult = "SERVER_ERROR"
)
