package references

import "errors"

var (
	ErrReferenceNotFound  = errors.New("reference not found")
	ErrReferenceNameTaken = errors.New("reference name already exists")
	ErrTariffNotFound     = errors.New("default tariff not found")
	ErrPublicReference    = errors.New("the public reference cannot be renamed or deleted")
)
