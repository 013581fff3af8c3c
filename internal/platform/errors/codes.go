// Package errors provides structured error handling shared across services.
package errors

import (
	stderrors "errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Manifest errors
	CodeManifestSyntax          Code = "MANIFEST_SYNTAX"
	CodeManifestRunEmpty        Code = "MANIFEST_RUN_EMPTY"
	CodeManifestTargetUnknown   Code = "MANIFEST_TARGET_UNKNOWN"
	CodeManifestPortInvalid     Code = "MANIFEST_PORT_INVALID"
	CodeManifestPortConflict    Code = "MANIFEST_PORT_CONFLICT"
	CodeManifestPortRunMismatch Code = "MANIFEST_PORT_RUN_MISMATCH"
	CodeManifestPackageName     Code = "MANIFEST_PACKAGE_NAME"
	CodeManifestScalingInvalid  Code = "MANIFEST_SCALING_INVALID"
	CodeManifestThemeInvalid    Code = "MANIFEST_THEME_INVALID"

	// Workflow errors
	CodeWorkflowDuplicateName Code = "WORKFLOW_DUPLICATE_NAME"
	CodeWorkflowDuplicateTask Code = "WORKFLOW_DUPLICATE_TASK"
	CodeWorkflowUnknownKind   Code = "WORKFLOW_UNKNOWN_KIND"
	CodeWorkflowUnknownNeed   Code = "WORKFLOW_UNKNOWN_NEED"
	CodeWorkflowCycle         Code = "WORKFLOW_CYCLE"
	CodeWorkflowNotFound      Code = "WORKFLOW_NOT_FOUND"
	CodeWorkflowTaskFailed    Code = "WORKFLOW_TASK_FAILED"

	// Scenario errors
	CodeScenarioInvalid    Code = "SCENARIO_INVALID"
	CodeScenarioStepFailed Code = "SCENARIO_STEP_FAILED"

	// Gateway errors
	CodeReplicaUnavailable Code = "REPLICA_UNAVAILABLE"
	CodeGatewayDraining    Code = "GATEWAY_DRAINING"
	CodeScaleOutOfBounds   Code = "SCALE_OUT_OF_BOUNDS"

	// Ops grant errors
	CodeOpsGrantInvalid Code = "OPS_GRANT_INVALID"
	CodeOpsGrantExpired Code = "OPS_GRANT_EXPIRED"
	CodeOpsGrantScope   Code = "OPS_GRANT_SCOPE"

	// Image errors
	CodeImageTooLarge     Code = "IMAGE_TOO_LARGE"
	CodeImageUnsupported  Code = "IMAGE_UNSUPPORTED"
	CodeImageDecodeFailed Code = "IMAGE_DECODE_FAILED"

	// Classifier errors
	CodeClassifyUnavailable   Code = "CLASSIFY_UNAVAILABLE"
	CodeProviderKeysMissing   Code = "PROVIDER_KEYS_MISSING"
	CodeProviderQuotaExceeded Code = "PROVIDER_QUOTA_EXCEEDED"
	CodeProviderResponse      Code = "PROVIDER_RESPONSE"

	// Scrape errors
	CodeScrapeURLInvalid   Code = "SCRAPE_URL_INVALID"
	CodeScrapeFetchFailed  Code = "SCRAPE_FETCH_FAILED"
	CodeScrapeNoFigures    Code = "SCRAPE_NO_FIGURES"
	CodeScrapeBodyTooLarge Code = "SCRAPE_BODY_TOO_LARGE"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input
	case CodeManifestSyntax,
		CodeManifestRunEmpty,
		CodeManifestTargetUnknown,
		CodeManifestPortInvalid,
		CodeManifestPortConflict,
		CodeManifestPortRunMismatch,
		CodeManifestPackageName,
		CodeManifestScalingInvalid,
		CodeManifestThemeInvalid,
		CodeWorkflowDuplicateName,
		CodeWorkflowDuplicateTask,
		CodeWorkflowUnknownKind,
		CodeWorkflowUnknownNeed,
		CodeWorkflowCycle,
		CodeScenarioInvalid,
		CodeScaleOutOfBounds,
		CodeImageDecodeFailed,
		CodeScrapeURLInvalid:
		return http.StatusBadRequest

	// Unauthorized / forbidden - ops grant failures
	case CodeOpsGrantInvalid, CodeOpsGrantExpired:
		return http.StatusUnauthorized
	case CodeOpsGrantScope:
		return http.StatusForbidden

	// Not found
	case CodeNotFound, CodeWorkflowNotFound, CodeScrapeNoFigures:
		return http.StatusNotFound

	// Payload constraints
	case CodeImageTooLarge, CodeScrapeBodyTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeImageUnsupported:
		return http.StatusUnsupportedMediaType

	// Upstream and capacity failures
	case CodeProviderQuotaExceeded:
		return http.StatusTooManyRequests
	case CodeScrapeFetchFailed, CodeProviderResponse:
		return http.StatusBadGateway
	case CodeReplicaUnavailable, CodeGatewayDraining, CodeClassifyUnavailable, CodeProviderKeysMissing:
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// CodeOf extracts the domain code from an error chain, or CodeUnknown when
// the chain carries no domain error.
func CodeOf(err error) Code {
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeUnknown
}
