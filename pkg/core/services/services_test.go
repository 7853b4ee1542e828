package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sandwichproject/coordinator/pkg/clients/directory"
	"github.com/sandwichproject/coordinator/pkg/core/assignment"
	"github.com/sandwichproject/coordinator/pkg/core/authz"
	"github.com/sandwichproject/coordinator/pkg/core/cache"
	"github.com/sandwichproject/coordinator/pkg/core/dedupe"
	"github.com/sandwichproject/coordinator/pkg/core/escalation"
	"github.com/sandwichproject/coordinator/pkg/core/model"
	"github.com/sandwichproject/coordinator/pkg/core/staging"
	"github.com/sandwichproject/coordinator/pkg/core/status"
	"github.com/sandwichproject/coordinator/pkg/core/transportplan"
)

// memStore is an in-memory EventRequestStore. Patch applies field maps
// through the wire form the way the postgres store does column-wise.
type memStore struct {
	mu      sync.Mutex
	records map[int64]*model.EventRequest
	nextID  int64

	failPatch error // when set, PatchEventRequest fails with this error
	patches   int
}

func newMemStore(events ...*model.EventRequest) *memStore {
	s := &memStore{records: make(map[int64]*model.EventRequest), nextID: 1}
	for _, e := range events {
		s.records[e.ID] = e.Clone()
		if e.ID >= s.nextID {
			s.nextID = e.ID + 1
		}
	}
	return s
}

func (s *memStore) GetEventRequests(ctx context.Context) ([]*model.EventRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.EventRequest, 0, len(s.records))
	for _, e := range s.records {
		out = append(out, e.Clone())
	}
	return out, nil
}

func (s *memStore) GetEventRequest(ctx context.Context, id int64) (*model.EventRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.records[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return e.Clone(), nil
}

func (s *memStore) InsertEventRequest(ctx context.Context, e *model.EventRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		e.ID = s.nextID
	}
	s.nextID = e.ID + 1
	s.records[e.ID] = e.Clone()
	return nil
}

func (s *memStore) ReplaceEventRequest(ctx context.Context, e *model.EventRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[e.ID]; !ok {
		return model.ErrNotFound
	}
	s.records[e.ID] = e.Clone()
	return nil
}

func (s *memStore) PatchEventRequest(ctx context.Context, id int64, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patches++
	if s.failPatch != nil {
		return s.failPatch
	}
	e, ok := s.records[id]
	if !ok {
		return model.ErrNotFound
	}
	for field, value := range fields {
		if err := staging.SetField(e, field, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *memStore) UpdateRolesIfCountMatches(ctx context.Context, id int64, role model.PersonRole, expectedCount int, roles map[model.PersonRole]*model.RoleState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.records[id]
	if !ok {
		return model.ErrNotFound
	}
	if len(e.Role(role).AssignedIDs) != expectedCount {
		return model.ErrCapacityExceeded
	}
	return staging.SetField(e, "roles", roles)
}

func (s *memStore) DeleteEventRequests(ctx context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.records, id)
	}
	return nil
}

type fixture struct {
	ctx     context.Context
	store   *memStore
	col     *cache.Collection
	stager  *staging.Stager
	undo    *staging.UndoRegistry
	tracker *escalation.Tracker
	dir     directory.Client
	auth    authz.Authorizer
	logger  *zap.Logger
}

func newFixture(t *testing.T, events ...*model.EventRequest) *fixture {
	t.Helper()
	f := &fixture{
		ctx:     context.Background(),
		store:   newMemStore(events...),
		col:     cache.NewCollection(zap.NewNop()),
		stager:  staging.NewStager(),
		undo:    staging.NewUndoRegistry(0),
		tracker: escalation.NewTracker(nil),
		dir: directory.NewStaticClient([]directory.Person{
			{ID: "u1", Name: "Priya Shah"},
			{ID: "u2", Name: "Noor Ali"},
		}),
		auth:   authz.AllowAll{},
		logger: zap.NewNop(),
	}
	require.NoError(t, f.col.Refetch(f.ctx, f.store))
	return f
}

// denyAll rejects every action.
type denyAll struct{}

func (denyAll) Authorize(ctx context.Context, userID string, action authz.Action) (authz.Decision, error) {
	return authz.Decision{Allowed: false}, nil
}

func intPtr(n int) *int { return &n }

func TestTransitionStatus_PersistsPatch(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, Status: model.StatusNew})

	err := TransitionStatus(f.ctx, f.store, f.col, f.auth, f.logger, "op", 1, status.ActionToolkitSent, status.Input{})
	require.NoError(t, err)

	stored, err := f.store.GetEventRequest(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProcess, stored.Status)
	assert.NotNil(t, stored.ToolkitSentDate)

	cached, _ := f.col.Get(1)
	assert.Equal(t, model.StatusInProcess, cached.Status)
}

func TestTransitionStatus_GuardFailureMakesNoStoreCall(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, Status: model.StatusInProcess})

	err := TransitionStatus(f.ctx, f.store, f.col, f.auth, f.logger, "op", 1, status.ActionCallCompleted, status.Input{})

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, f.store.patches)
}

func TestTransitionStatus_Denied(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, Status: model.StatusNew})

	err := TransitionStatus(f.ctx, f.store, f.col, denyAll{}, f.logger, "op", 1, status.ActionToolkitSent, status.Input{})

	assert.ErrorIs(t, err, model.ErrPermissionDenied)
	assert.Zero(t, f.store.patches)
}

func TestAssignRole_ResolvesDisplayName(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, Status: model.StatusScheduled})

	err := AssignRole(f.ctx, f.store, f.col, f.dir, f.auth, f.logger, "op", 1, model.RoleDriver, "u1")
	require.NoError(t, err)

	stored, _ := f.store.GetEventRequest(f.ctx, 1)
	rs := stored.Role(model.RoleDriver)
	assert.Equal(t, []string{"u1"}, rs.AssignedIDs)
	assert.Equal(t, []string{"Priya Shah"}, rs.LegacyNames)
	assert.Equal(t, "op", rs.Details["u1"].AssignedBy)
}

func TestAssignRole_PatchFailureRollsBack(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, Status: model.StatusScheduled})
	f.store.failPatch = errors.New("write timeout")

	err := AssignRole(f.ctx, f.store, f.col, f.dir, f.auth, f.logger, "op", 1, model.RoleDriver, "u1")

	var terr *model.TransportError
	require.ErrorAs(t, err, &terr)
	cached, _ := f.col.Get(1)
	assert.Empty(t, cached.Role(model.RoleDriver).AssignedIDs, "assignment rolled back in the cache")
}

func TestUnassignRole(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, Status: model.StatusScheduled})
	require.NoError(t, AssignRole(f.ctx, f.store, f.col, f.dir, f.auth, f.logger, "op", 1, model.RoleDriver, "u1"))

	err := UnassignRole(f.ctx, f.store, f.col, f.auth, f.logger, "op", 1, model.RoleDriver, "u1")
	require.NoError(t, err)

	stored, _ := f.store.GetEventRequest(f.ctx, 1)
	assert.Empty(t, stored.Role(model.RoleDriver).AssignedIDs)
	assert.Empty(t, stored.Role(model.RoleDriver).LegacyNames)
}

func TestBulkAssignRoles_UnresolvedIDStoresRawID(t *testing.T) {
	// An id the directory no longer knows is stored as-is; "User not found"
	// is a display fallback and must never end up in the record.
	f := newFixture(t, &model.EventRequest{ID: 1, Status: model.StatusScheduled})

	err := BulkAssignRoles(f.ctx, f.store, f.col, f.dir, f.auth, f.logger, "op", 1,
		model.RoleVolunteer, []string{"u1", "old_import_42"})
	require.NoError(t, err)

	stored, _ := f.store.GetEventRequest(f.ctx, 1)
	rs := stored.Role(model.RoleVolunteer)
	assert.Equal(t, []string{"u1", "old_import_42"}, rs.AssignedIDs)
	assert.Contains(t, rs.LegacyNames, "old_import_42")
	assert.NotContains(t, rs.LegacyNames, directory.UserNotFound)
}

func TestSelfSignup_CountMovedUnderneath(t *testing.T) {
	// The cached record shows a free slot, but another signup landed in the
	// store first. The conditional update refuses and the cache reconciles.
	f := newFixture(t, &model.EventRequest{ID: 1, Status: model.StatusScheduled})
	f.store.records[1].Role(model.RoleDriver).Needed = intPtr(2)
	require.NoError(t, f.col.Refetch(f.ctx, f.store))

	// Racer reaches the store directly after our cache snapshot
	assignment.Assign(f.store.records[1], model.RoleDriver,
		assignment.Person{ID: "u2", Name: "Noor Ali"}, "racer",
		time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))

	err := SelfSignup(f.ctx, f.store, f.col, f.auth, f.logger,
		assignment.Person{ID: "u1", Name: "Priya Shah"}, 1, model.RoleDriver)

	assert.ErrorIs(t, err, model.ErrCapacityExceeded)
	stored, _ := f.store.GetEventRequest(f.ctx, 1)
	assert.Equal(t, []string{"u2"}, stored.Role(model.RoleDriver).AssignedIDs, "the racer's slot survives")
	cached, _ := f.col.Get(1)
	assert.Equal(t, []string{"u2"}, cached.Role(model.RoleDriver).AssignedIDs, "cache reconciled to the stored truth")
}

func TestSelfSignup_Succeeds(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, Status: model.StatusScheduled})

	err := SelfSignup(f.ctx, f.store, f.col, f.auth, f.logger,
		assignment.Person{ID: "u1", Name: "Priya Shah"}, 1, model.RoleDriver)
	require.NoError(t, err)

	stored, _ := f.store.GetEventRequest(f.ctx, 1)
	detail := stored.Role(model.RoleDriver).Details["u1"]
	assert.True(t, detail.SelfAssigned)
}

func TestAutosaveField_MintsUndoToken(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, PlanningNotes: "old", Status: model.StatusNew})

	token, err := AutosaveField(f.ctx, f.store, f.col, f.undo, f.auth, f.logger, "op", 1, "planningNotes", "new")
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "old", token.PreviousValue)

	stored, _ := f.store.GetEventRequest(f.ctx, 1)
	assert.Equal(t, "new", stored.PlanningNotes)
}

func TestAutosaveField_FailureMintsNoToken(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, PlanningNotes: "old", Status: model.StatusNew})
	f.store.failPatch = errors.New("write timeout")

	token, err := AutosaveField(f.ctx, f.store, f.col, f.undo, f.auth, f.logger, "op", 1, "planningNotes", "new")

	var terr *model.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Nil(t, token)
	_, active := f.undo.Active(1, "planningNotes")
	assert.False(t, active, "failed saves are not undoable")
}

func TestUndoAutosave_RestoresPreviousValue(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, PlanningNotes: "old", Status: model.StatusNew})
	token, err := AutosaveField(f.ctx, f.store, f.col, f.undo, f.auth, f.logger, "op", 1, "planningNotes", "new")
	require.NoError(t, err)

	require.NoError(t, UndoAutosave(f.ctx, f.store, f.col, f.undo, f.logger, token.ID))

	stored, _ := f.store.GetEventRequest(f.ctx, 1)
	assert.Equal(t, "old", stored.PlanningNotes)

	// The token is spent
	err = UndoAutosave(f.ctx, f.store, f.col, f.undo, f.logger, token.ID)
	assert.ErrorIs(t, err, ErrUndoExpired)
}

func TestUndoAutosave_SecondEditCancelsFirstToken(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, PlanningNotes: "original", Status: model.StatusNew})
	tokenA, err := AutosaveField(f.ctx, f.store, f.col, f.undo, f.auth, f.logger, "op", 1, "planningNotes", "edit A")
	require.NoError(t, err)
	tokenB, err := AutosaveField(f.ctx, f.store, f.col, f.undo, f.auth, f.logger, "op", 1, "planningNotes", "edit B")
	require.NoError(t, err)

	err = UndoAutosave(f.ctx, f.store, f.col, f.undo, f.logger, tokenA.ID)
	assert.ErrorIs(t, err, ErrUndoExpired, "the first token was replaced")

	require.NoError(t, UndoAutosave(f.ctx, f.store, f.col, f.undo, f.logger, tokenB.ID))
	stored, _ := f.store.GetEventRequest(f.ctx, 1)
	assert.Equal(t, "edit A", stored.PlanningNotes, "undoing B restores B's pre-edit value")
}

func TestSaveStaged_CommitsAllFieldsAndClears(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, Status: model.StatusNew})
	f.stager.Stage(1, "planningNotes", "use side door")
	f.stager.Stage(1, "desiredEventDate", "2026-03-14")

	err := SaveStaged(f.ctx, f.store, f.col, f.stager, f.auth, f.logger, "op", 1)
	require.NoError(t, err)

	stored, _ := f.store.GetEventRequest(f.ctx, 1)
	assert.Equal(t, "use side door", stored.PlanningNotes)
	assert.Equal(t, "2026-03-14", stored.DesiredEventDate)
	assert.False(t, f.stager.HasPending(1))
	assert.Equal(t, 1, f.store.patches, "all staged fields commit as one request")
}

func TestSaveStaged_FailureKeepsStagedEdits(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, Status: model.StatusNew})
	f.stager.Stage(1, "planningNotes", "draft")
	f.store.failPatch = errors.New("write timeout")

	err := SaveStaged(f.ctx, f.store, f.col, f.stager, f.auth, f.logger, "op", 1)

	require.Error(t, err)
	assert.True(t, f.stager.HasPending(1), "staged edits survive a failed save for retry by the operator")
}

func TestSaveStaged_NothingStagedIsNoOp(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, Status: model.StatusNew})
	require.NoError(t, SaveStaged(f.ctx, f.store, f.col, f.stager, f.auth, f.logger, "op", 1))
	assert.Zero(t, f.store.patches)
}

func TestSetTransportPlan_Persists(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, Status: model.StatusScheduled})

	err := SetTransportPlan(f.ctx, f.store, f.col, f.auth, f.logger, "op", 1, transportplan.Plan{
		Shape:              transportplan.ShapePickup,
		PickupOrganization: "Hope Kitchen",
	})
	require.NoError(t, err)

	stored, _ := f.store.GetEventRequest(f.ctx, 1)
	assert.Equal(t, transportplan.ShapePickup, transportplan.Resolve(stored).Shape)
}

func TestSetTransportPlan_InvalidPlanMakesNoStoreCall(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, Status: model.StatusScheduled})

	err := SetTransportPlan(f.ctx, f.store, f.col, f.auth, f.logger, "op", 1, transportplan.Plan{
		Shape: transportplan.ShapeOvernight,
	})

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, f.store.patches)
}

func TestMarkUnresponsive_LeavesStatusAlone(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, Status: model.StatusInProcess})

	err := MarkUnresponsive(f.ctx, f.store, f.col, f.tracker, f.auth, f.logger, "op", 1,
		escalation.MarkInput{Reason: model.ReasonNoAnswer, Notes: "no pickup"})
	require.NoError(t, err)

	stored, _ := f.store.GetEventRequest(f.ctx, 1)
	assert.True(t, stored.Escalation.IsUnresponsive)
	assert.Equal(t, 1, stored.Escalation.ContactAttempts)
	assert.Equal(t, model.StatusInProcess, stored.Status)
}

func TestResolveEscalation_KeepsCounters(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, Status: model.StatusInProcess})
	require.NoError(t, MarkUnresponsive(f.ctx, f.store, f.col, f.tracker, f.auth, f.logger, "op", 1,
		escalation.MarkInput{Reason: model.ReasonNoAnswer}))

	require.NoError(t, ResolveEscalation(f.ctx, f.store, f.col, f.tracker, f.auth, f.logger, "op", 1))

	stored, _ := f.store.GetEventRequest(f.ctx, 1)
	assert.False(t, stored.Escalation.IsUnresponsive)
	assert.Equal(t, 1, stored.Escalation.ContactAttempts)
}

func TestCleanupDuplicates_DeletesAndReconciles(t *testing.T) {
	f := newFixture(t,
		&model.EventRequest{ID: 1, Status: model.StatusNew},
		&model.EventRequest{ID: 2, Status: model.StatusNew},
		&model.EventRequest{ID: 3, Status: model.StatusNew},
	)
	result := &dedupe.DetectionResult{
		DuplicateGroups:   []dedupe.DuplicateGroup{{Entries: []int64{1, 2}, KeepNewest: 2, ToDelete: []int64{1}}},
		SuspiciousEntries: []int64{3},
	}

	deleted, err := CleanupDuplicates(f.ctx, f.store, f.col, f.auth, f.logger, "op", result)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 3}, deleted)
	assert.Equal(t, 1, f.col.Len())
	_, ok := f.col.Get(2)
	assert.True(t, ok, "the kept record survives")
}

func TestCleanupDuplicates_Denied(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, Status: model.StatusNew})

	_, err := CleanupDuplicates(f.ctx, f.store, f.col, denyAll{}, f.logger, "op", &dedupe.DetectionResult{
		SuspiciousEntries: []int64{1},
	})

	assert.ErrorIs(t, err, model.ErrPermissionDenied)
	assert.Equal(t, 1, f.col.Len())
}

func TestCreateEventRequest_ForcesNewStatus(t *testing.T) {
	f := newFixture(t)

	e, err := CreateEventRequest(f.ctx, f.store, f.col, f.logger, &model.EventRequest{
		Name:         "Priya Shah",
		Organization: "Scout troop",
		Status:       model.StatusScheduled, // ignored
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusNew, e.Status)
	assert.NotZero(t, e.ID)
	stored, err := f.store.GetEventRequest(f.ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNew, stored.Status)
}

func TestGetEventRequest_RefetchesOnMiss(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.InsertEventRequest(f.ctx, &model.EventRequest{ID: 7, Status: model.StatusNew}))

	e, err := GetEventRequest(f.ctx, f.store, f.col, f.logger, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), e.ID)

	_, err = GetEventRequest(f.ctx, f.store, f.col, f.logger, 404)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSummarizeEventRequest(t *testing.T) {
	f := newFixture(t, &model.EventRequest{ID: 1, Status: model.StatusScheduled})
	require.NoError(t, AssignRole(f.ctx, f.store, f.col, f.dir, f.auth, f.logger, "op", 1, model.RoleDriver, "u1"))
	e, err := GetEventRequest(f.ctx, f.store, f.col, f.logger, 1)
	require.NoError(t, err)

	summary, err := SummarizeEventRequest(f.ctx, f.dir, e)
	require.NoError(t, err)

	require.Len(t, summary.RoleSummaries, 3)
	var driverNames []string
	for _, rs := range summary.RoleSummaries {
		if rs.Role == model.RoleDriver {
			driverNames = rs.Assigned
		}
	}
	assert.Equal(t, []string{"Priya Shah"}, driverNames)
	assert.Equal(t, "not yet specified", summary.PlanText)
}
