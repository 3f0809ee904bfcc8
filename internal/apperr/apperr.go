// Package apperr carries machine-readable rejection codes across the game service.
package apperr

import (
	"errors"
	"fmt"
)

// Kind groups codes by how callers are expected to react.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindStateConflict Kind = "state_conflict"
	KindNotFound      Kind = "not_found"
	KindInvariant     Kind = "invariant_violation"
	KindTransport     Kind = "transport"
)

// Code is a machine-readable rejection reason.
type Code string

const (
	CodeUnknown Code = "unknown"

	// Validation
	CodeInvalidRequest  Code = "invalid_request"
	CodeUnknownAction   Code = "unknown_action"
	CodeMissingField    Code = "missing_field"
	CodeInvalidMode     Code = "invalid_mode"
	CodeInvalidCapacity Code = "invalid_capacity"
	CodeInvalidName     Code = "invalid_name"
	CodeInvalidColor    Code = "invalid_color"
	CodeInvalidFigure   Code = "invalid_figure"
	CodeInvalidPosition Code = "invalid_position"
	CodeInvalidCursor   Code = "invalid_cursor"
	CodeInvalidScope    Code = "invalid_scope"
	CodeEmptyMessage    Code = "empty_message"
	CodeMessageTooLong  Code = "message_too_long"
	CodeIllegalMove     Code = "illegal_move"
	CodeFigureNotOwned  Code = "figure_not_owned"
	CodeFigureNotAtFrom Code = "figure_not_at_from"

	// State conflicts
	CodeGameFull         Code = "game_full"
	CodeTeamFull         Code = "team_full"
	CodeWrongMode        Code = "wrong_mode"
	CodeAlreadyStarted   Code = "game_already_started"
	CodeNotReady         Code = "game_not_ready"
	CodeNotPlaying       Code = "game_not_playing"
	CodeNotYourTurn      Code = "not_your_turn"
	CodeDicePending      Code = "dice_already_rolled"
	CodeNoDice           Code = "no_pending_dice"
	CodeTooFewPlayers    Code = "too_few_participants"
	CodeBlocked          Code = "destination_blocked"
	CodeConcurrentUpdate Code = "concurrent_update"
	CodeNotTeamMember    Code = "not_team_member"

	// Not found
	CodeGameNotFound   Code = "game_not_found"
	CodePlayerNotFound Code = "player_not_found"
	CodeTeamNotFound   Code = "team_not_found"
	CodeResultNotFound Code = "result_not_found"

	// Internal
	CodeBoardInvariant Code = "board_invariant"
	CodeEmptyTeam      Code = "empty_team"
	CodeStorage        Code = "storage_failure"

	// Client side
	CodeTransport       Code = "transport_failure"
	CodeRetriesExceeded Code = "retries_exhausted"
)

// Kind maps a code onto its rejection kind.
func (c Code) Kind() Kind {
	switch c {
	case CodeInvalidRequest,
		CodeUnknownAction,
		CodeMissingField,
		CodeInvalidMode,
		CodeInvalidCapacity,
		CodeInvalidName,
		CodeInvalidColor,
		CodeInvalidFigure,
		CodeInvalidPosition,
		CodeInvalidCursor,
		CodeInvalidScope,
		CodeEmptyMessage,
		CodeMessageTooLong,
		CodeIllegalMove,
		CodeFigureNotOwned,
		CodeFigureNotAtFrom:
		return KindValidation

	case CodeGameFull,
		CodeTeamFull,
		CodeWrongMode,
		CodeAlreadyStarted,
		CodeNotReady,
		CodeNotPlaying,
		CodeNotYourTurn,
		CodeDicePending,
		CodeNoDice,
		CodeTooFewPlayers,
		CodeBlocked,
		CodeConcurrentUpdate,
		CodeNotTeamMember:
		return KindStateConflict

	case CodeGameNotFound,
		CodePlayerNotFound,
		CodeTeamNotFound,
		CodeResultNotFound:
		return KindNotFound

	case CodeTransport, CodeRetriesExceeded:
		return KindTransport

	default:
		return KindInvariant
	}
}

// HTTPStatus maps a kind onto the status code returned by the transport.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return 400
	case KindStateConflict:
		return 409
	case KindNotFound:
		return 404
	case KindTransport:
		return 502
	default:
		return 500
	}
}

// Error is a structured rejection. Message is developer-facing; user-facing
// text is rendered from the message catalog by code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Kind returns the rejection kind of the error code.
func (e *Error) Kind() Kind { return e.Code.Kind() }

// New creates a rejection with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code to an underlying cause.
func Wrap(code Code, err error, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf extracts the code from any error. Plain errors report CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// KindOf reports the kind of err; errors without a code are internal faults.
func KindOf(err error) Kind {
	return CodeOf(err).Kind()
}

// Is reports whether err carries code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// Invariant reports a board or rotation bookkeeping contradiction.
func Invariant(format string, args ...any) *Error {
	return New(CodeBoardInvariant, format, args...)
}
