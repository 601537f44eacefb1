package drafts

import "github.com/wolfman30/outreach-pipeline/internal/apperr"

var (
	ErrNotConfigured      = apperr.New(apperr.KindUpstream, "AI provider not configured")
	ErrEmptyInstruction   = apperr.New(apperr.KindValidation, "instruction is required")
	ErrEmptyResearch      = apperr.New(apperr.KindValidation, "raw_text is required")
	ErrNotStaged          = apperr.New(apperr.KindNotFound, "no hunted email staged for this speaker")
	ErrStagedEmailChanged = apperr.New(apperr.KindConflict, "staged email does not match")
	ErrNoIDs              = apperr.New(apperr.KindValidation, "speaker_ids must not be empty")
	ErrTooManyIDs         = apperr.New(apperr.KindValidation, "too many speaker_ids in one bulk hunt")
)
