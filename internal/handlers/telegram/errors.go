package telegram

import (
	"errors"

	"mirrorbot/internal/core/domain"
	apperrors "mirrorbot/pkg/errors"
)

// classify turns any error returned by a service into an AppError whose
// message can be shown to the user.
func classify(err error) *apperrors.AppError {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return appErr
	}

	switch {
	case errors.Is(err, domain.ErrInvalidDuration):
		return apperrors.NewInvalidDurationError(msgInvalidTime)
	case errors.Is(err, domain.ErrNotEntitled):
		return apperrors.NewNotEntitledError(msgCheckNone)
	case errors.Is(err, domain.ErrSelfTransfer):
		return apperrors.NewInvalidInputError(msgSelfTrans)
	case errors.Is(err, domain.ErrStoreUnavailable):
		return apperrors.NewStoreUnavailableError(err)
	case errors.Is(err, domain.ErrNotificationFailed):
		return apperrors.NewNotificationFailedError(err)
	case errors.Is(err, domain.ErrInvalidReplacement):
		return apperrors.NewInvalidInputError("Invalid format. Use: 'WORD(s)' 'REPLACEWORD'")
	case errors.Is(err, domain.ErrInvalidChat):
		return apperrors.NewInvalidInputError("❌ Invalid chat. Send a numeric chat id like -1001234567890 or a public @username.")
	case errors.Is(err, domain.ErrBotNotAdmin):
		return apperrors.NewForbiddenError("❌ I am not an administrator of that chat. Promote me and try again.")
	case errors.Is(err, domain.ErrPhotoRequired):
		return apperrors.NewInvalidInputError("Please send a photo. Operation cancelled.")
	case errors.Is(err, domain.ErrFileTooLarge):
		return apperrors.NewInvalidInputError(msgFileTooLarge)
	case errors.Is(err, domain.ErrUnknownAction):
		return apperrors.NewInvalidInputError("Unknown action")
	default:
		return apperrors.NewInternalError(err)
	}
}

// errorText is the reply shown for err.
func errorText(err error) string {
	appErr := classify(err)
	if appErr.Retryable {
		return "⚠️ " + appErr.Message
	}
	return appErr.Message
}
