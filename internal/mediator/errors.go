package mediator

import "errors"

// Stake lifecycle rejections. All are raised locally before any gas is
// spent; the ledger enforces the same rules authoritatively, and its
// rejections propagate through the submitter unchanged.
var (
	ErrWrongStakeAmount   = errors.New("stake amount must equal the required stake")
	ErrDuplicateStake     = errors.New("an active stake already exists for this skill")
	ErrNoActiveStake      = errors.New("no stake exists for this owner and skill")
	ErrAlreadySettled     = errors.New("stake has already been settled")
	ErrInvalidMilestoneID = errors.New("milestone id must be between 1 and 5")
	ErrDuplicateMilestone = errors.New("milestone id must exceed the current checkpoint")
)
