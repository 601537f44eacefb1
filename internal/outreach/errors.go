package outreach

import "github.com/wolfman30/outreach-pipeline/internal/apperr"

var (
	ErrNotFound         = apperr.New(apperr.KindNotFound, "speaker not found")
	ErrAssigneeNotFound = apperr.New(apperr.KindNotFound, "assignee not found")
	ErrContactRequired  = apperr.New(apperr.KindValidation,
		"Cannot progress beyond 'Scouted' without an Email or Phone. Please add contact information first.")
	ErrInvalidName     = apperr.New(apperr.KindValidation, "name is required")
	ErrInvalidStatus   = apperr.New(apperr.KindValidation, "unknown status")
	ErrInvalidKind     = apperr.New(apperr.KindValidation, "kind must be SPEAKER or SPONSOR")
	ErrInvalidPriority = apperr.New(apperr.KindValidation, "priority must be LOW, MEDIUM, HIGH or URGENT")
	ErrNoIDs           = apperr.New(apperr.KindValidation, "ids must not be empty")
	ErrNoDraft         = apperr.New(apperr.KindValidation, "no draft saved for this speaker")
	ErrNoEmail         = apperr.New(apperr.KindValidation, "speaker has no email address")
)
