package service

import (
	"net/http"

	"coursehub/internal/apperr"
)

var (
	ErrInvalidToken       = apperr.Auth("invalid or expired token")
	ErrUnauthorized       = apperr.Auth("please login to access this resource")
	ErrInvalidCredentials = apperr.Auth("there was an error in email or password")

	ErrTokenExpired = apperr.Validation("activation token expired, please register again")
	ErrInvalidCode  = apperr.Validation("the activation code is invalid")
	ErrEmailInUse   = apperr.Validation("email already exists")

	ErrUserNotFound     = apperr.NotFound("user not found")
	ErrCourseNotFound   = apperr.NotFound("course not found")
	ErrContentNotFound  = apperr.NotFound("content not found")
	ErrQuestionNotFound = apperr.NotFound("question not found")
	ErrReviewNotFound   = apperr.NotFound("review not found")

	ErrNotPurchased     = apperr.Forbidden("you are not allowed to access this course").WithStatus(http.StatusNotFound)
	ErrReviewNotAllowed = apperr.Forbidden("you are not allowed to add review in this course").WithStatus(http.StatusNotFound)

	ErrMissingEmail  = apperr.New(apperr.KindDependency, "no email address defined").WithStatus(http.StatusBadRequest)
	ErrEmailDispatch = apperr.New(apperr.KindDependency, "failed to send email").WithStatus(http.StatusBadRequest)

	ErrCourseConflict = apperr.Conflict("course was modified concurrently, please retry")

	ErrAlreadyPurchased     = apperr.Validation("you have already purchased this course")
	ErrNotificationNotFound = apperr.NotFound("notification not found")
	ErrWrongPassword        = apperr.Validation("invalid old password")
	ErrNoPassword           = apperr.Validation("this account signs in with a social provider")
	ErrInvalidResetCode     = apperr.Validation("invalid or expired reset code")
	ErrResetNotVerified     = apperr.Validation("reset code has not been verified")
	ErrInvalidRole          = apperr.Validation("invalid role")
	ErrUnsupportedMedia     = apperr.Validation("unsupported image type")
)

func internalErr(message string, err error) *apperr.Error {
	return apperr.New(apperr.KindInternal, message).Wrap(err)
}
