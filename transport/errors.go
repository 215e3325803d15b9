package transport

import "errors"

var (
	MissingCredentialsErr    = errors.New("login id and password are required")
	InsufficientPrivilegeErr = errors.New("insufficient privilege")
	LoginFailedErr           = errors.New("login failed")
	CaptchaRequestErr        = errors.New("captcha request failed")
)
