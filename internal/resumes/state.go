package resumes

import "fmt"

var transitions = map[string][]string{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusFailed:     {StatusProcessing},
}

// CanTransition reports whether a record may move from one status to another.
// failed->processing is legal only through an explicit retrigger; callers
// enforce that by choosing the source statuses they pass to the repo.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to string) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s->%s", ErrInvalidTransition, from, to)
	}
	return nil
}

func transitionLabel(from, to string) string {
	return from + "->" + to
}
