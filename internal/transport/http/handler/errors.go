package handler

const (
	errInternalServer = "Internal server error"
	errBadCredentials = "Invalid username or password"
)
