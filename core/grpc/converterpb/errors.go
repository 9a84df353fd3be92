package converterpb

import "github.com/you-humble/printq/core/apperr"

var (
	ErrNoFileProvided       = apperr.Validation("no_file_provided", "no file provided", nil)
	ErrUnsupportedMediaType = apperr.Validation("unsupported_media_type", "unsupported media type", nil)
	ErrPayloadTooLarge      = apperr.Validation("payload_too_large", "payload too large", nil)
	ErrConverterUnavailable = apperr.Unavailable("converter_unavailable", "converter unavailable", nil)
	ErrConversionFailed     = apperr.External("conversion_failed", "conversion failed", nil)
	ErrArtifactUnreadable   = apperr.External("artifact_unreadable", "converted artifact unreadable", nil)
)
