package session

// followupGuardBandSec is the near-expiry window in which follow-up requests
// are suppressed: with this little time left a new question would only be cut
// off mid-answer.
const followupGuardBandSec = 30

// followupAction is the policy decision taken after a candidate turn.
type followupAction int

const (
	// actionAdvance: section time is up; record nothing more here, move on.
	actionAdvance followupAction = iota
	// actionSuppress: inside the guard band; stay on the section but ask
	// nothing new.
	actionSuppress
	// actionRequest: enough time remains to solicit a follow-up question.
	actionRequest
)

// decideFollowup applies the strict precedence of the follow-up policy:
// expiry beats the guard band, the guard band beats a request.
func decideFollowup(c *Clock) followupAction {
	if c.Expired() || c.TimeLeftSec() <= 0 {
		return actionAdvance
	}
	if c.TimeLeftSec() <= followupGuardBandSec {
		return actionSuppress
	}
	return actionRequest
}
