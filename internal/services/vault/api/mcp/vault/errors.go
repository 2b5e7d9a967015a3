package vault

import (
	"context"

	apperrors "github.com/louisbranch/tokenvault/internal/platform/errors"
	"github.com/louisbranch/tokenvault/internal/platform/requestctx"
)

// ToolError is returned to MCP clients as error content. Its text leads with
// the stable code so agents can branch on it without parsing prose.
type ToolError struct {
	Code    apperrors.Code
	Message string
}

func (e *ToolError) Error() string {
	return string(e.Code) + ": " + e.Message
}

func toolError(ctx context.Context, err error) error {
	locale := requestctx.LocaleFromContext(ctx, apperrors.DefaultLocale)
	return &ToolError{
		Code:    apperrors.GetCode(err),
		Message: apperrors.LocalizedMessage(err, locale),
	}
}
