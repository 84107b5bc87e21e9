package launchpad

import (
	"errors"
	"net/http"

	"github.com/voltfinance/voltage-launchpad/native/bank"
	"github.com/voltfinance/voltage-launchpad/native/launch"
	"github.com/voltfinance/voltage-launchpad/native/votelock"
)

// ErrBadRequest marks malformed input rejected before reaching a module.
var ErrBadRequest = errors.New("launchpad: bad request")

var statusByError = []struct {
	err    error
	status int
}{
	{ErrBadRequest, http.StatusBadRequest},
	{launch.ErrConfigInvalid, http.StatusBadRequest},
	{launch.ErrInvalidAmount, http.StatusBadRequest},
	{bank.ErrInvalidAmount, http.StatusBadRequest},
	{votelock.ErrInvalidAmount, http.StatusBadRequest},
	{votelock.ErrInvalidDuration, http.StatusBadRequest},

	{launch.ErrUnauthorized, http.StatusForbidden},
	{launch.ErrIssuerExcluded, http.StatusForbidden},

	{launch.ErrSaleNotFound, http.StatusNotFound},
	{launch.ErrNotInitialized, http.StatusNotFound},
	{bank.ErrAssetNotFound, http.StatusNotFound},
	{votelock.ErrNoLock, http.StatusNotFound},

	{launch.ErrAlreadyInitialized, http.StatusConflict},
	{launch.ErrWrongPhase, http.StatusConflict},
	{launch.ErrNotParticipantPhase, http.StatusConflict},
	{launch.ErrCapExceeded, http.StatusConflict},
	{launch.ErrInsufficientBalance, http.StatusConflict},
	{launch.ErrAlreadyClaimed, http.StatusConflict},
	{launch.ErrNothingToClaim, http.StatusConflict},
	{launch.ErrAlreadySettled, http.StatusConflict},
	{launch.ErrPoolAlreadyLiquid, http.StatusConflict},
	{launch.ErrNoReserveDeposited, http.StatusConflict},
	{launch.ErrPoolNotCreated, http.StatusConflict},
	{launch.ErrUserTimelockActive, http.StatusConflict},
	{launch.ErrIssuerTimelockActive, http.StatusConflict},
	{launch.ErrStopped, http.StatusConflict},
	{launch.ErrNotStopped, http.StatusConflict},
	{launch.ErrSaleExists, http.StatusConflict},
	{bank.ErrAssetExists, http.StatusConflict},
	{bank.ErrInsufficientBalance, http.StatusConflict},
	{votelock.ErrLockActive, http.StatusConflict},
}

// StatusCode maps a service error to the HTTP status returned to clients.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for _, entry := range statusByError {
		if errors.Is(err, entry.err) {
			return entry.status
		}
	}
	return http.StatusInternalServerError
}
