package auth

import "errors"

var (
	// ErrInvalidToken indicates a malformed token or a failed signature check.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrWrongTokenType indicates a token presented in the wrong context,
	// e.g. an access token sent to the refresh endpoint.
	ErrWrongTokenType = errors.New("wrong token type")
	// ErrBadCredentials covers both unknown usernames and wrong passwords.
	ErrBadCredentials = errors.New("invalid username or password")
	// ErrNotAuthenticated indicates a request that carried no usable token.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrForbidden indicates an authenticated principal without the required role.
	ErrForbidden = errors.New("insufficient privilege")
)
