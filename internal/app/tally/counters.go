package tally

import (
	"fmt"

	"github.com/campusvote/campusvote/internal/domain"
)

func CounterKeyTotal(id domain.ElectionID) string {
	return fmt.Sprintf("election:%s:total", id)
}

func CounterKeyCandidate(electionID domain.ElectionID, candidateID domain.CandidateID) string {
	return fmt.Sprintf("election:%s:candidate:%s", electionID, candidateID)
}
