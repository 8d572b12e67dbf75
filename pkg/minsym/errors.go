package minsym

import "errors"

var (
	ErrCollectorDiscarded = errors.New("collector discarded")
	ErrNoImage            = errors.New("no image")
	ErrImageRegistered    = errors.New("image already registered")
	ErrImageNotFound      = errors.New("image not found")
)
