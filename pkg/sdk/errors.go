package sdk

import "github.com/beanbocchi/genestack/internal/model"

// Error kinds returned by the SDK. Match them with errors.Is; use errors.As
// with *ServerError or *ConnectionError for details.
var (
	ErrConnection         = model.ErrConnection
	ErrAuthentication     = model.ErrAuthentication
	ErrServerApplication  = model.ErrServerApplication
	ErrConfiguration      = model.ErrConfiguration
	ErrVersionTooOld      = model.ErrVersionTooOld
	ErrFileNotFound       = model.ErrFileNotFound
	ErrUnexpectedStatus   = model.ErrUnexpectedStatus
	ErrInvalidResponse    = model.ErrInvalidResponse
	ErrRedirectsExhausted = model.ErrRedirectsExhausted
)

type (
	ServerError     = model.ServerError
	ConnectionError = model.ConnectionError
)
