package services

import (
	"errors"
)

type ErrorKind int

const (
	ErrorKindNotFound ErrorKind = iota + 1
	ErrorKindAccessDenied
	ErrorKindBadInput
	ErrorKindConflict
)

type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrUserNotFound    = &Error{ErrorKindNotFound, "user not found"}
	ErrChatNotFound    = &Error{ErrorKindNotFound, "chat not found"}
	ErrMessageNotFound = &Error{ErrorKindNotFound, "message not found"}
	ErrPostNotFound    = &Error{ErrorKindNotFound, "post not found"}

	ErrAccessDenied = &Error{ErrorKindAccessDenied, "access denied"}

	ErrBadInput          = &Error{ErrorKindBadInput, "bad input"}
	ErrBadCredentials    = &Error{ErrorKindBadInput, "incorrect name or password"}
	ErrSelfReference     = &Error{ErrorKindBadInput, "you cannot send a request to yourself"}
	ErrAlreadyFriends    = &Error{ErrorKindBadInput, "users are already friends"}
	ErrNoPendingRequest  = &Error{ErrorKindBadInput, "no pending friend request from this user"}
	ErrNotAFollower      = &Error{ErrorKindBadInput, "user is not your follower"}
	ErrNotFriends        = &Error{ErrorKindBadInput, "users are not friends"}
	ErrChatAlreadyExists = &Error{ErrorKindBadInput, "these users already have a chat"}
	ErrChatFull          = &Error{ErrorKindBadInput, "there are already two users in the chat"}
	ErrAlreadyMember     = &Error{ErrorKindBadInput, "you are already in this chat"}
	ErrNotParticipant    = &Error{ErrorKindBadInput, "sender not a participant"}
	ErrUnsupportedImage  = &Error{ErrorKindBadInput, "unsupported image type"}

	ErrConflict = &Error{ErrorKindConflict, "concurrent modification, please try again"}
)

// KindOf reports the kind of err, zero when err is not one of ours.
func KindOf(err error) ErrorKind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return 0
}

// retryOnConflict runs fn again once when the first attempt lost an optimistic lock race.
func retryOnConflict(fn func() error) error {
	err := fn()
	if errors.Is(err, ErrConflict) {
		err = fn()
	}
	return err
}
