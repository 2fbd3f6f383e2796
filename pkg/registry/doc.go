// Package registry maps action names used in flow definitions to their handlers.
package registry
