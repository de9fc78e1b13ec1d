package domain

import "errors"

var (
	// ErrIncompleteResult bloqueia a apuração inteira do concurso
	ErrIncompleteResult = errors.New("incomplete result")
	// ErrAlreadySettled é informativo: dispara o replay do resultado gravado
	ErrAlreadySettled = errors.New("draw already settled")
	// ErrInvalidPick afeta só o bilhete em questão
	ErrInvalidPick = errors.New("invalid pick")
	// ErrPersistenceFailure indica que a gravação não completou; repetir é seguro
	ErrPersistenceFailure = errors.New("persistence failure")

	ErrDrawNotFound      = errors.New("draw not found")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrNotSettled        = errors.New("draw not settled")
	ErrInvalidTransition = errors.New("invalid draw status transition")
	ErrSalesClosed       = errors.New("draw no longer accepts tickets")
	ErrUnknownGame       = errors.New("unknown game")
	ErrInvalidTierTable  = errors.New("invalid tier table")
	ErrInvalidResult     = errors.New("invalid result")
	ErrInvalidStake      = errors.New("invalid stake")
	ErrDuplicate         = errors.New("already exists")
)
