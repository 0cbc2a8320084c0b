package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/campusvote/campusvote/internal/domain"
	"github.com/campusvote/campusvote/internal/platform/ids"
)

func setupPostgres(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// A single connection keeps every query on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&domain.Principal{},
		&domain.RoleAssignment{},
		&domain.Election{},
		&domain.Candidate{},
		&domain.Vote{},
		&domain.AuditEntry{},
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}

func buildElection(gen *ids.Generator, status domain.ElectionStatus) (domain.Election, []domain.Candidate) {
	now := time.Now().UTC()
	e := domain.Election{
		ID:          domain.ElectionID(gen.New()),
		Title:       "Student Council 2026",
		Description: "Annual council election",
		Status:      status,
		StartsAt:    now,
		EndsAt:      now.Add(48 * time.Hour),
		CreatedBy:   domain.PrincipalID(gen.New()),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	candidates := []domain.Candidate{
		{ID: domain.CandidateID(gen.New()), ElectionID: e.ID, Name: "Ada", CreatedAt: now, UpdatedAt: now},
		{ID: domain.CandidateID(gen.New()), ElectionID: e.ID, Name: "Grace", CreatedAt: now, UpdatedAt: now},
	}
	return e, candidates
}

func TestElectionRepository_Create_WhenValid_ShouldPersistElectionWithCandidates(t *testing.T) {
	db := setupPostgres(t)
	repo := NewElectionRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()
	election, candidates := buildElection(gen, domain.StatusDraft)

	err := repo.Create(ctx, election, candidates)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, election.ID)
	require.NoError(t, err)
	assert.Equal(t, election.ID, found.ID)
	assert.Equal(t, election.Title, found.Title)
	assert.Equal(t, domain.StatusDraft, found.Status)
	assert.Len(t, found.Candidates, 2)
}

func TestElectionRepository_Create_WhenCandidateInsertFails_ShouldRollBackElection(t *testing.T) {
	db := setupPostgres(t)
	repo := NewElectionRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()
	election, candidates := buildElection(gen, domain.StatusDraft)

	// Reusing the first candidate id forces a primary key violation on
	// the second insert, inside the same transaction.
	candidates[1].ID = candidates[0].ID

	err := repo.Create(ctx, election, candidates)
	require.Error(t, err)

	_, err = repo.FindByID(ctx, election.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestElectionRepository_FindByID_WhenMissing_ShouldReturnNotFound(t *testing.T) {
	db := setupPostgres(t)
	repo := NewElectionRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()

	_, err := repo.FindByID(ctx, domain.ElectionID(gen.New()))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestElectionRepository_Update_WhenExists_ShouldPersistChanges(t *testing.T) {
	db := setupPostgres(t)
	repo := NewElectionRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()
	election, candidates := buildElection(gen, domain.StatusDraft)
	require.NoError(t, repo.Create(ctx, election, candidates))

	election.Title = "Student Council 2026 (rescheduled)"
	election.Status = domain.StatusActive
	election.UpdatedAt = time.Now().UTC()

	err := repo.Update(ctx, election)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, election.ID)
	require.NoError(t, err)
	assert.Equal(t, "Student Council 2026 (rescheduled)", found.Title)
	assert.Equal(t, domain.StatusActive, found.Status)
}

func TestElectionRepository_Delete_WhenExists_ShouldRemoveElectionCandidatesAndVotes(t *testing.T) {
	db := setupPostgres(t)
	repo := NewElectionRepository(db)
	voteRepo := NewVoteRepository(db)
	candidateRepo := NewCandidateRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()
	election, candidates := buildElection(gen, domain.StatusActive)
	require.NoError(t, repo.Create(ctx, election, candidates))

	vote := domain.Vote{
		ID:          domain.VoteID(gen.New()),
		ElectionID:  election.ID,
		CandidateID: candidates[0].ID,
		VoterID:     domain.PrincipalID(gen.New()),
		BallotToken: "7f9c24e5-2f41-4a0b-9c34-111111111111",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, voteRepo.Insert(ctx, vote))

	err := repo.Delete(ctx, election.ID)
	require.NoError(t, err)

	_, err = repo.FindByID(ctx, election.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	remaining, err := candidateRepo.ListByElection(ctx, election.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	total, err := voteRepo.CountByElection(ctx, election.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestElectionRepository_Delete_WhenMissing_ShouldReturnNotFound(t *testing.T) {
	db := setupPostgres(t)
	repo := NewElectionRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()

	err := repo.Delete(ctx, domain.ElectionID(gen.New()))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestElectionRepository_List_WhenFiltered_ShouldReturnOnlyMatchingStatuses(t *testing.T) {
	db := setupPostgres(t)
	repo := NewElectionRepository(db)

	ctx := context.Background()
	gen := ids.NewGenerator()

	draft, draftCandidates := buildElection(gen, domain.StatusDraft)
	require.NoError(t, repo.Create(ctx, draft, draftCandidates))

	active, activeCandidates := buildElection(gen, domain.StatusActive)
	require.NoError(t, repo.Create(ctx, active, activeCandidates))

	closed, closedCandidates := buildElection(gen, domain.StatusClosed)
	require.NoError(t, repo.Create(ctx, closed, closedCandidates))

	visible, err := repo.List(ctx, domain.StatusActive, domain.StatusClosed)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	for _, e := range visible {
		assert.NotEqual(t, domain.StatusDraft, e.Status)
	}

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
