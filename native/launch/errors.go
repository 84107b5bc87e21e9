package launch

import "errors"

var (
	ErrConfigInvalid        = errors.New("launch: invalid sale configuration")
	ErrAlreadyInitialized   = errors.New("launch: already initialized")
	ErrNotInitialized       = errors.New("launch: not initialized")
	ErrWrongPhase           = errors.New("launch: wrong phase")
	ErrNotParticipantPhase  = errors.New("launch: deposits closed in current phase")
	ErrIssuerExcluded       = errors.New("launch: issuer cannot participate")
	ErrCapExceeded          = errors.New("launch: amount exceeds max allocation")
	ErrInsufficientBalance  = errors.New("launch: withdraw amount exceeds balance")
	ErrInvalidAmount        = errors.New("launch: amount must be positive")
	ErrAlreadyClaimed       = errors.New("launch: already claimed")
	ErrNothingToClaim       = errors.New("launch: nothing to claim")
	ErrAlreadySettled       = errors.New("launch: pool already created")
	ErrPoolAlreadyLiquid    = errors.New("launch: liquid pair already exists")
	ErrNoReserveDeposited   = errors.New("launch: no reserve deposited")
	ErrPoolNotCreated       = errors.New("launch: pair not created")
	ErrUserTimelockActive   = errors.New("launch: can't withdraw before user's timelock")
	ErrIssuerTimelockActive = errors.New("launch: can't withdraw before issuer's timelock")
	ErrStopped              = errors.New("launch: stopped")
	ErrNotStopped           = errors.New("launch: sale is still running")
	ErrUnauthorized         = errors.New("launch: unauthorized")
	ErrSaleExists           = errors.New("launch: sale already exists for asset")
	ErrSaleNotFound         = errors.New("launch: sale not found")

	errNilState = errors.New("launch engine: state not configured")
)
