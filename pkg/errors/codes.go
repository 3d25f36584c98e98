// Package errors provides centralized error code definitions for the
// retrosynthesis pathway agent. All error codes are grouped by component and
// mapped to an HTTP status and a human-readable name.
package errors

import "net/http"

// ErrorCode represents a typed error code used throughout the pipeline.
type ErrorCode int

// ─────────────────────────────────────────────────────────────────────────────
// General / cross-cutting error codes (1xxxx)
// ─────────────────────────────────────────────────────────────────────────────
const (
	// CodeOK indicates no error.
	CodeOK ErrorCode = 0

	// CodeUnknown is a catch-all for errors that have not been categorised.
	CodeUnknown ErrorCode = 10000

	// CodeInvalidParam is returned when a CLI flag or request parameter fails
	// validation.
	CodeInvalidParam ErrorCode = 10001

	// CodeNotFound is returned when a requested resource (reaction, cache
	// entry, document) does not exist.
	CodeNotFound ErrorCode = 10004

	// CodeConflict is returned when an operation would violate a store
	// invariant.
	CodeConflict ErrorCode = 10005

	// CodeInternal is returned for unexpected failures not attributable to
	// the caller.
	CodeInternal ErrorCode = 10007

	// CodeCancelled is returned when a cooperative cancellation signal fires
	// mid-pipeline.
	CodeCancelled ErrorCode = 10008
)

// ─────────────────────────────────────────────────────────────────────────────
// Reaction store error codes (2xxxx)
// ─────────────────────────────────────────────────────────────────────────────
const (
	// CodeReactionParseError is returned when a reaction-extraction text
	// block cannot be parsed.
	CodeReactionParseError ErrorCode = 20001

	// CodeReactionInvalid is returned when a parsed reaction violates a
	// store invariant (reactants and products overlap).
	CodeReactionInvalid ErrorCode = 20002

	// CodeReactionNotFound is returned when Store.Get is called with an
	// unknown idx.
	CodeReactionNotFound ErrorCode = 20003
)

// ─────────────────────────────────────────────────────────────────────────────
// Tree engine / pathway error codes (3xxxx)
// ─────────────────────────────────────────────────────────────────────────────
const (
	// CodeTreeSerializationError is returned when a tree snapshot fails to
	// encode or decode.
	CodeTreeSerializationError ErrorCode = 30003
)

// ─────────────────────────────────────────────────────────────────────────────
// Expansion controller error codes (4xxxx)
// ─────────────────────────────────────────────────────────────────────────────
const (
	// CodeDocumentFetchFailed is returned when acquiring additional
	// documents for an unexpandable substance fails.
	CodeDocumentFetchFailed ErrorCode = 40002
)

// ─────────────────────────────────────────────────────────────────────────────
// Entity alignment error codes (5xxxx)
// ─────────────────────────────────────────────────────────────────────────────
const (
	// CodeAlignmentParseError is returned when the LLM's synonym-cluster
	// reply cannot be parsed.
	CodeAlignmentParseError ErrorCode = 50001
)

// ─────────────────────────────────────────────────────────────────────────────
// Availability oracle / name resolver error codes (6xxxx)
// ─────────────────────────────────────────────────────────────────────────────
const (
	// CodeOracleUnavailable marks a degraded (not fatal) state where the
	// remote compound registry could not be reached within the retry
	// budget.
	CodeOracleUnavailable ErrorCode = 60001

	// CodeResolverDegraded marks a degraded (not fatal) state where both
	// name resolvers failed and the original name is used as-is.
	CodeResolverDegraded ErrorCode = 60002
)

// ─────────────────────────────────────────────────────────────────────────────
// Infrastructure error codes (7xxxx)
// ─────────────────────────────────────────────────────────────────────────────
const (
	// CodeDBConnectionError is returned when the application cannot
	// establish or re-use a connection to PostgreSQL.
	CodeDBConnectionError ErrorCode = 70001

	// CodeDBQueryError is returned when a database query fails.
	CodeDBQueryError ErrorCode = 70002

	// CodeCacheError is returned when a Redis cache operation fails.
	CodeCacheError ErrorCode = 70003

	// CodeStorageError is returned when a MinIO object-storage operation
	// fails.
	CodeStorageError ErrorCode = 70004

	// CodeMessageQueueError is returned when producing to or consuming from
	// the Kafka event bus fails.
	CodeMessageQueueError ErrorCode = 70005

	// CodeExternalService is returned for generic failures of an
	// out-of-scope external collaborator (patent DB, paper search, PDF
	// renderer, LLM, registry, name resolvers).
	CodeExternalService ErrorCode = 70006

	// CodeIO is returned for local filesystem or cache-file I/O failures.
	CodeIO ErrorCode = 70007
)

// ─────────────────────────────────────────────────────────────────────────────
// String — human-readable name of the error code
// ─────────────────────────────────────────────────────────────────────────────

// String returns the human-readable name associated with an ErrorCode. It is
// safe to call on any value, including unknown codes.
func (c ErrorCode) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeInvalidParam:
		return "INVALID_PARAM"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodeConflict:
		return "CONFLICT"
	case CodeInternal:
		return "INTERNAL_ERROR"
	case CodeCancelled:
		return "CANCELLED"

	case CodeReactionParseError:
		return "REACTION_PARSE_ERROR"
	case CodeReactionInvalid:
		return "REACTION_INVALID"
	case CodeReactionNotFound:
		return "REACTION_NOT_FOUND"

	case CodeTreeSerializationError:
		return "TREE_SERIALIZATION_ERROR"

	case CodeDocumentFetchFailed:
		return "DOCUMENT_FETCH_FAILED"

	case CodeAlignmentParseError:
		return "ALIGNMENT_PARSE_ERROR"

	case CodeOracleUnavailable:
		return "ORACLE_UNAVAILABLE"
	case CodeResolverDegraded:
		return "RESOLVER_DEGRADED"

	case CodeDBConnectionError:
		return "DB_CONNECTION_ERROR"
	case CodeDBQueryError:
		return "DB_QUERY_ERROR"
	case CodeCacheError:
		return "CACHE_ERROR"
	case CodeStorageError:
		return "STORAGE_ERROR"
	case CodeMessageQueueError:
		return "MESSAGE_QUEUE_ERROR"
	case CodeExternalService:
		return "EXTERNAL_SERVICE_ERROR"
	case CodeIO:
		return "IO_ERROR"

	default:
		return "UNKNOWN"
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// HTTPStatus — mapping of each code to an HTTP status. cmd/worker's ops
// surface does not call it.
// ─────────────────────────────────────────────────────────────────────────────

// HTTPStatus returns the HTTP status code that best represents this
// ErrorCode. Unknown codes default to 500.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeOK:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeNotFound, CodeReactionNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeReactionInvalid:
		return http.StatusConflict
	case CodeCancelled:
		return http.StatusRequestTimeout
	case CodeOracleUnavailable, CodeResolverDegraded, CodeDocumentFetchFailed,
		CodeExternalService, CodeMessageQueueError:
		return http.StatusServiceUnavailable
	case CodeDBConnectionError, CodeDBQueryError, CodeCacheError, CodeStorageError, CodeIO:
		return http.StatusBadGateway
	case CodeReactionParseError, CodeAlignmentParseError, CodeTreeSerializationError:
		return http.StatusUnprocessableEntity
	case CodeInternal, CodeUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
