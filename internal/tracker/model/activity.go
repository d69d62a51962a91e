package model

import "time"

// MaxActivities caps the recent-activity ring buffer.
const MaxActivities = 20

// Activity types recorded by the tracker.
const (
	ActivityAdded     = "added"
	ActivityUpdated   = "updated"
	ActivityDeleted   = "deleted"
	ActivityCompleted = "completed"
	ActivityRetry     = "retry"
	ActivityNote      = "note"
	ActivitySync      = "sync"
)

// Activity is one entry of the recent-activity log, newest first.
type Activity struct {
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// PushActivity prepends entry and trims the log to MaxActivities.
func PushActivity(log []Activity, entry Activity) []Activity {
	out := make([]Activity, 0, len(log)+1)
	out = append(out, entry)
	out = append(out, log...)
	if len(out) > MaxActivities {
		out = out[:MaxActivities]
	}
	return out
}
