package response

// ErrorResponse is the body the application server returns when an
// invoked method fails.
type ErrorResponse struct {
	Error      any    `json:"error"`
	StackTrace string `json:"errorStackTrace,omitempty"`
}

// AuthenticateResponse is the result of genestack/signin.authenticate.
type AuthenticateResponse struct {
	Authenticated bool `json:"authenticated"`
}

// VersionResponse is the result of genestack/clientVersion.getCurrentVersion.
type VersionResponse struct {
	Latest     string `json:"latest"`
	Compatible string `json:"compatible"`
}

// UploadResponse is what the test server answers once an upload is complete.
type UploadResponse struct {
	File   string `json:"file"`
	Size   int64  `json:"size"`
	Digest string `json:"digest"`
}

// FromErrorMessage builds an ErrorResponse carrying a plain message.
func FromErrorMessage(message, stackTrace string) ErrorResponse {
	return ErrorResponse{Error: message, StackTrace: stackTrace}
}
