package reputation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthesis/oracle/internal/contracts"
	"github.com/openthesis/oracle/pkg/logger"
)

type fakeUserStore struct {
	ids         []int64
	listErr     error
	writeErr    map[int64]error
	reputations map[int64]float64
}

func newFakeUserStore(ids ...int64) *fakeUserStore {
	return &fakeUserStore{
		ids:         ids,
		writeErr:    make(map[int64]error),
		reputations: make(map[int64]float64),
	}
}

func (f *fakeUserStore) ListIDs(ctx context.Context) ([]int64, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.ids, nil
}

func (f *fakeUserStore) SetReputation(ctx context.Context, userID int64, score float64) error {
	if err := f.writeErr[userID]; err != nil {
		return err
	}
	f.reputations[userID] = score
	return nil
}

type fakeEndorsementStore struct {
	outcomes map[int64][]contracts.EndorsedOutcome
	errs     map[int64]error
}

func (f *fakeEndorsementStore) OutcomesEndorsedBy(ctx context.Context, userID int64) ([]contracts.EndorsedOutcome, error) {
	if err := f.errs[userID]; err != nil {
		return nil, err
	}
	return f.outcomes[userID], nil
}

func (f *fakeEndorsementStore) EndorsersOf(ctx context.Context, postID int64) ([]contracts.EndorserReputation, error) {
	return nil, nil
}

func floatPtr(v float64) *float64 { return &v }

func endorsed(outcomes ...*float64) []contracts.EndorsedOutcome {
	result := make([]contracts.EndorsedOutcome, len(outcomes))
	for i, o := range outcomes {
		result[i] = contracts.EndorsedOutcome{PostID: int64(i + 1), Outcome: o}
	}
	return result
}

func TestAggregateMapping(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []contracts.EndorsedOutcome
		want     float64
	}{
		{
			name:     "positive average lifts reputation",
			outcomes: endorsed(floatPtr(0.10)),
			want:     1.0, // 0.5 + 0.10*5
		},
		{
			name:     "negative average lowers reputation",
			outcomes: endorsed(floatPtr(-0.04)),
			want:     0.3, // 0.5 - 0.04*5
		},
		{
			name:     "huge gain clamps to one",
			outcomes: endorsed(floatPtr(10.0)),
			want:     1.0,
		},
		{
			name:     "huge loss clamps to zero",
			outcomes: endorsed(floatPtr(-10.0)),
			want:     0.0,
		},
		{
			name:     "zero average stays neutral",
			outcomes: endorsed(floatPtr(0.05), floatPtr(-0.05)),
			want:     0.5,
		},
		{
			name:     "unresolved endorsements excluded from the average",
			outcomes: endorsed(floatPtr(0.02), nil, nil),
			want:     0.6, // avg over the single resolved outcome
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := newFakeUserStore(1)
			endorsements := &fakeEndorsementStore{
				outcomes: map[int64][]contracts.EndorsedOutcome{1: tt.outcomes},
			}

			agg := NewAggregator(users, endorsements, DefaultConfig(), logger.NewNop())

			updated, skipped, err := agg.Aggregate(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, updated)
			assert.Equal(t, 0, skipped)
			assert.InDelta(t, tt.want, users.reputations[1], 1e-9)
		})
	}
}

func TestAggregateSkipsUsersWithoutTrackRecord(t *testing.T) {
	users := newFakeUserStore(1, 2, 3)
	endorsements := &fakeEndorsementStore{
		outcomes: map[int64][]contracts.EndorsedOutcome{
			1: endorsed(floatPtr(0.10)),
			2: nil,                // never endorsed anything
			3: endorsed(nil, nil), // endorsed only unresolved posts
		},
	}

	agg := NewAggregator(users, endorsements, DefaultConfig(), logger.NewNop())

	updated, skipped, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Equal(t, 2, skipped)

	_, scored2 := users.reputations[2]
	_, scored3 := users.reputations[3]
	assert.False(t, scored2, "user with no endorsements keeps previous score")
	assert.False(t, scored3, "user with only unresolved endorsements keeps previous score")
}

func TestAggregateSkipsOnPerUserFailure(t *testing.T) {
	users := newFakeUserStore(1, 2)
	users.writeErr[2] = fmt.Errorf("deadlock detected")
	endorsements := &fakeEndorsementStore{
		outcomes: map[int64][]contracts.EndorsedOutcome{
			1: endorsed(floatPtr(0.02)),
			2: endorsed(floatPtr(0.02)),
		},
	}

	agg := NewAggregator(users, endorsements, DefaultConfig(), logger.NewNop())

	updated, skipped, err := agg.Aggregate(context.Background())
	require.NoError(t, err, "per-user failures must not abort the phase")
	assert.Equal(t, 1, updated)
	assert.Equal(t, 1, skipped)
}

func TestAggregateAbortsWhenListingFails(t *testing.T) {
	users := newFakeUserStore()
	users.listErr = fmt.Errorf("connection refused")

	agg := NewAggregator(users, &fakeEndorsementStore{}, DefaultConfig(), logger.NewNop())

	_, _, err := agg.Aggregate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list users")
}

func TestScoresAlwaysWithinBounds(t *testing.T) {
	agg := NewAggregator(nil, nil, DefaultConfig(), logger.NewNop())

	for _, avg := range []float64{-100, -1, -0.2, -0.1, 0, 0.1, 0.2, 1, 100} {
		score, ok := agg.scoreFor(endorsed(floatPtr(avg)))
		require.True(t, ok)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}
