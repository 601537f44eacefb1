package identity

import "github.com/wolfman30/outreach-pipeline/internal/apperr"

var (
	ErrNotFound            = apperr.New(apperr.KindNotFound, "user not found")
	ErrNotRecognized       = apperr.New(apperr.KindUnauthenticated, "Roll/Name not recognized")
	ErrAlreadyAuthorized   = apperr.New(apperr.KindValidation, "User already authorized")
	ErrSelfRemoval         = apperr.New(apperr.KindValidation, "Cannot remove yourself")
	ErrBootstrapProtected  = apperr.New(apperr.KindValidation, "the bootstrap admin cannot be removed or demoted")
	ErrAdminGrantForbidden = apperr.New(apperr.KindForbidden, "only the bootstrap admin can grant admin rights")
	ErrMissingID           = apperr.New(apperr.KindValidation, "id is required")
	ErrMissingName         = apperr.New(apperr.KindValidation, "name is required")
	ErrInvalidRole         = apperr.New(apperr.KindValidation, "unknown role")
	ErrInvalidCounters     = apperr.New(apperr.KindValidation, "xp and streak must be non-negative")
	ErrInvalidDate         = apperr.New(apperr.KindValidation, "last_login_date must be YYYY-MM-DD")
)
