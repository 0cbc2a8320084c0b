package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusvote/campusvote/internal/domain"
	"github.com/campusvote/campusvote/internal/platform/ids"
)

func buildVote(gen *ids.Generator, electionID domain.ElectionID, candidateID domain.CandidateID, voterID domain.PrincipalID) domain.Vote {
	return domain.Vote{
		ID:          domain.VoteID(gen.New()),
		ElectionID:  electionID,
		CandidateID: candidateID,
		VoterID:     voterID,
		BallotToken: uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
	}
}

func TestVoteRepository_Insert_WhenValid_ShouldPersistBallot(t *testing.T) {
	db := setupPostgres(t)
	repo := NewVoteRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()

	// Arrange
	vote := buildVote(gen,
		domain.ElectionID(gen.New()),
		domain.CandidateID(gen.New()),
		domain.PrincipalID(gen.New()),
	)

	// Act
	err := repo.Insert(ctx, vote)
	require.NoError(t, err)

	// Assert
	total, err := repo.CountByElection(ctx, vote.ElectionID)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestVoteRepository_Insert_WhenSameVoterVotesTwice_ShouldReturnDuplicateVote(t *testing.T) {
	db := setupPostgres(t)
	repo := NewVoteRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()
	electionID := domain.ElectionID(gen.New())
	voterID := domain.PrincipalID(gen.New())

	first := buildVote(gen, electionID, domain.CandidateID(gen.New()), voterID)
	require.NoError(t, repo.Insert(ctx, first))

	// A second ballot for the same election and voter must be rejected by
	// the unique index, even though it targets a different candidate.
	second := buildVote(gen, electionID, domain.CandidateID(gen.New()), voterID)
	err := repo.Insert(ctx, second)
	assert.ErrorIs(t, err, domain.ErrDuplicateVote)

	total, err := repo.CountByElection(ctx, electionID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestVoteRepository_Insert_WhenSameVoterInOtherElection_ShouldAccept(t *testing.T) {
	db := setupPostgres(t)
	repo := NewVoteRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()
	voterID := domain.PrincipalID(gen.New())

	first := buildVote(gen, domain.ElectionID(gen.New()), domain.CandidateID(gen.New()), voterID)
	require.NoError(t, repo.Insert(ctx, first))

	second := buildVote(gen, domain.ElectionID(gen.New()), domain.CandidateID(gen.New()), voterID)
	assert.NoError(t, repo.Insert(ctx, second))
}

func TestVoteRepository_Insert_WhenConcurrentDuplicates_ShouldAllowExactlyOne(t *testing.T) {
	db := setupPostgres(t)
	repo := NewVoteRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()
	electionID := domain.ElectionID(gen.New())
	voterID := domain.PrincipalID(gen.New())
	candidates := []domain.CandidateID{
		domain.CandidateID(gen.New()),
		domain.CandidateID(gen.New()),
	}

	const attempts = 8
	results := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			vote := buildVote(gen, electionID, candidates[n%len(candidates)], voterID)
			results <- repo.Insert(ctx, vote)
		}(i)
	}
	wg.Wait()
	close(results)

	var accepted, duplicated int
	for err := range results {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, domain.ErrDuplicateVote):
			duplicated++
		default:
			t.Fatalf("unexpected insert error: %v", err)
		}
	}

	assert.Equal(t, 1, accepted)
	assert.Equal(t, attempts-1, duplicated)

	total, err := repo.CountByElection(ctx, electionID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestVoteRepository_HasVoted_WhenBallotExists_ShouldReturnTrue(t *testing.T) {
	db := setupPostgres(t)
	repo := NewVoteRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()
	electionID := domain.ElectionID(gen.New())
	voterID := domain.PrincipalID(gen.New())

	voted, err := repo.HasVoted(ctx, electionID, voterID)
	require.NoError(t, err)
	assert.False(t, voted)

	require.NoError(t, repo.Insert(ctx, buildVote(gen, electionID, domain.CandidateID(gen.New()), voterID)))

	voted, err = repo.HasVoted(ctx, electionID, voterID)
	require.NoError(t, err)
	assert.True(t, voted)
}

func TestVoteRepository_FindByVoter_WhenMissing_ShouldReturnNotFound(t *testing.T) {
	db := setupPostgres(t)
	repo := NewVoteRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()

	_, err := repo.FindByVoter(ctx, domain.ElectionID(gen.New()), domain.PrincipalID(gen.New()))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVoteRepository_FindByVoter_WhenBallotExists_ShouldReturnIt(t *testing.T) {
	db := setupPostgres(t)
	repo := NewVoteRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()
	vote := buildVote(gen,
		domain.ElectionID(gen.New()),
		domain.CandidateID(gen.New()),
		domain.PrincipalID(gen.New()),
	)
	require.NoError(t, repo.Insert(ctx, vote))

	found, err := repo.FindByVoter(ctx, vote.ElectionID, vote.VoterID)
	require.NoError(t, err)
	assert.Equal(t, vote.ID, found.ID)
	assert.Equal(t, vote.BallotToken, found.BallotToken)
}

func TestVoteRepository_CountByCandidate_WhenVotesExist_ShouldGroupTotals(t *testing.T) {
	db := setupPostgres(t)
	repo := NewVoteRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()
	electionID := domain.ElectionID(gen.New())

	candidate1 := domain.CandidateID(gen.New())
	candidate2 := domain.CandidateID(gen.New())

	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Insert(ctx, buildVote(gen, electionID, candidate1, domain.PrincipalID(gen.New()))))
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Insert(ctx, buildVote(gen, electionID, candidate2, domain.PrincipalID(gen.New()))))
	}

	totals, err := repo.CountByCandidate(ctx, electionID)
	require.NoError(t, err)
	assert.Len(t, totals, 2)
	assert.Equal(t, int64(2), totals[candidate1])
	assert.Equal(t, int64(3), totals[candidate2])
}

func TestVoteRepository_TallyByElection_WhenNoVotes_ShouldZeroFillAllCandidates(t *testing.T) {
	db := setupPostgres(t)
	electionRepo := NewElectionRepository(db)
	repo := NewVoteRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()
	election, candidates := buildElection(gen, domain.StatusActive)
	require.NoError(t, electionRepo.Create(ctx, election, candidates))

	entries, err := repo.TallyByElection(ctx, election.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, int64(0), entry.Votes)
	}
	// Ties are broken by candidate name ascending.
	assert.Equal(t, "Ada", entries[0].CandidateName)
	assert.Equal(t, "Grace", entries[1].CandidateName)
}

func TestVoteRepository_TallyByElection_WhenVotesExist_ShouldOrderByVotesDescending(t *testing.T) {
	db := setupPostgres(t)
	electionRepo := NewElectionRepository(db)
	repo := NewVoteRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()
	election, candidates := buildElection(gen, domain.StatusActive)
	require.NoError(t, electionRepo.Create(ctx, election, candidates))

	// One vote for Ada, three for Grace.
	require.NoError(t, repo.Insert(ctx, buildVote(gen, election.ID, candidates[0].ID, domain.PrincipalID(gen.New()))))
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Insert(ctx, buildVote(gen, election.ID, candidates[1].ID, domain.PrincipalID(gen.New()))))
	}

	entries, err := repo.TallyByElection(ctx, election.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, candidates[1].ID, entries[0].CandidateID)
	assert.Equal(t, int64(3), entries[0].Votes)
	assert.Equal(t, candidates[0].ID, entries[1].CandidateID)
	assert.Equal(t, int64(1), entries[1].Votes)
}

func TestVoteRepository_TallyByElection_ShouldIsolateElections(t *testing.T) {
	db := setupPostgres(t)
	electionRepo := NewElectionRepository(db)
	repo := NewVoteRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()

	first, firstCandidates := buildElection(gen, domain.StatusActive)
	require.NoError(t, electionRepo.Create(ctx, first, firstCandidates))

	second, secondCandidates := buildElection(gen, domain.StatusActive)
	require.NoError(t, electionRepo.Create(ctx, second, secondCandidates))

	require.NoError(t, repo.Insert(ctx, buildVote(gen, first.ID, firstCandidates[0].ID, domain.PrincipalID(gen.New()))))

	entries, err := repo.TallyByElection(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, int64(0), entry.Votes)
	}
}
