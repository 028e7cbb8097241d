// Package observability builds the structured zap logger shared by the
// gateway and the dispatch layer.
package observability
