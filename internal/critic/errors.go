package critic

import "fmt"

// NoWinnerError reports a judging call that did not name a usable winner:
// either the model returned no submission id, or an id that matches none of
// the contract's submissions. No state is mutated when this is returned.
type NoWinnerError struct {
	ContractID string
	ReturnedID string
}

func (e *NoWinnerError) Error() string {
	if e.ReturnedID == "" {
		return fmt.Sprintf("judge returned no winner for contract %s", e.ContractID)
	}
	return fmt.Sprintf("judge returned unknown submission %s for contract %s", e.ReturnedID, e.ContractID)
}
