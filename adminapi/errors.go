package adminapi

import "errors"

var (
	UnauthorizedErr  = errors.New("unauthorized")
	NotFoundErr      = errors.New("not found")
	RequestFailedErr = errors.New("admin api request failed")
)
