package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuth             = fmt.Errorf("authentication rejected")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")

	// Catalog and conversion errors
	ErrNotFound        = fmt.Errorf("not found in catalog")
	ErrNoResults       = fmt.Errorf("no search results")
	ErrUnsupportedLink = fmt.Errorf("unsupported link")
	ErrTransport       = fmt.Errorf("transport failure")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
