package httputil

// Machine-readable error codes returned in ErrorResponse.Code
const (
	CodeInternalError      = "INTERNAL_ERROR"
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeValidationError    = "VALIDATION_ERROR"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeNotFound           = "NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"

	// auth
	CodeEmailRequired       = "EMAIL_REQUIRED"
	CodeInvalidEmailFormat  = "INVALID_EMAIL_FORMAT"
	CodePasswordRequired    = "PASSWORD_REQUIRED"
	CodePasswordTooShort    = "PASSWORD_TOO_SHORT"
	CodeEmailAlreadyExists  = "EMAIL_ALREADY_EXISTS"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInvalidPassword     = "INVALID_PASSWORD"
	CodeInvalidAuthHeader   = "INVALID_AUTH_HEADER"
	CodeMissingAuth         = "MISSING_AUTH"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeAlreadyVerified     = "ALREADY_VERIFIED"
	CodeVerificationFailed  = "VERIFICATION_FAILED"
	CodeVerificationMissing = "VERIFICATION_TOKEN_REQUIRED"
	CodeInvalidResetToken   = "INVALID_RESET_TOKEN"
	CodeInvalidRole         = "INVALID_ROLE"

	// activity
	CodeOwnerRequired       = "OWNER_REQUIRED"
	CodeAnonymousIDRequired = "ANONYMOUS_ID_REQUIRED"
	CodeMovieNotFound       = "MOVIE_NOT_FOUND"
	CodeRentalNotFound      = "RENTAL_NOT_FOUND"
	CodeProgressNotFound    = "PROGRESS_NOT_FOUND"

	// catalog
	CodeImageNotFound     = "IMAGE_NOT_FOUND"
	CodeImageTypeMismatch = "IMAGE_TYPE_MISMATCH"
	CodePersonNotFound    = "PERSON_NOT_FOUND"
	CodeDuplicateTMDB     = "DUPLICATE_TMDB_ID"
	CodeUpstreamFailure   = "UPSTREAM_FAILURE"
	CodeCreditNotFound    = "CREDIT_NOT_FOUND"
	CodeInvalidReference  = "INVALID_REFERENCE"
	CodeMissingTMDBID     = "MISSING_TMDB_ID"
)
