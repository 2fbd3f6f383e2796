// Package leads derives dashboard analytics from lead records and extracts
// contact details from free-text answers.
package leads
