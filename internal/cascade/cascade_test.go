package cascade

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteplanner/internal/models"
)

type doc map[string]interface{}

// memStore is an in-memory Store. failAfter > 0 makes the write with that
// ordinal (1-based) and every later one fail.
type memStore struct {
	mu        sync.Mutex
	data      map[string][]doc
	writes    int
	failAfter int
	nextID    int
}

var errInjected = errors.New("injected storage failure")

func newMemStore() *memStore {
	return &memStore{data: map[string][]doc{}}
}

func (s *memStore) add(collection string, d doc) {
	s.data[collection] = append(s.data[collection], d)
}

func (s *memStore) count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data[collection])
}

func (s *memStore) snapshot() map[string][]doc {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string][]doc{}
	for k, docs := range s.data {
		copied := make([]doc, 0, len(docs))
		for _, d := range docs {
			c := doc{}
			for f, v := range d {
				c[f] = v
			}
			copied = append(copied, c)
		}
		out[k] = copied
	}
	return out
}

func matches(d doc, f Filter) bool {
	if f.SkipAudit {
		if audit, _ := d["audit"].(bool); audit {
			return false
		}
	}
	v, ok := d[f.Field].(string)
	if !ok {
		return false
	}
	for _, want := range f.Values {
		if v == want {
			return true
		}
	}
	return false
}

func (s *memStore) Values(_ context.Context, collection string, filter Filter, field string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, d := range s.data[collection] {
		if matches(d, filter) {
			if v, ok := d[field].(string); ok {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

func (s *memStore) write() error {
	s.writes++
	if s.failAfter > 0 && s.writes >= s.failAfter {
		return errInjected
	}
	return nil
}

func (s *memStore) DeleteMany(_ context.Context, collection string, filter Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(); err != nil {
		return 0, err
	}
	var kept []doc
	var removed int64
	for _, d := range s.data[collection] {
		if matches(d, filter) {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	s.data[collection] = kept
	return removed, nil
}

func (s *memStore) InsertActivity(_ context.Context, a models.Activity) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(); err != nil {
		return "", err
	}
	s.nextID++
	id := fmt.Sprintf("audit-%d", s.nextID)
	s.add(models.CollectionActivities, doc{
		"_id":        id,
		"userId":     a.UserID,
		"type":       a.Type,
		"details":    a.Details,
		"resourceId": a.ResourceID,
		"audit":      a.Audit,
	})
	return id, nil
}

func (s *memStore) audits(kind string) []doc {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []doc
	for _, d := range s.data[models.CollectionActivities] {
		if d["type"] == kind {
			out = append(out, d)
		}
	}
	return out
}

// seed builds two users: u1 owns p1 and p2, u2 owns p3. a5 is an audit row
// attributed to u1 itself, as older owner deletes wrote them.
func seed() *memStore {
	s := newMemStore()
	s.add(models.CollectionUsers, doc{"_id": "u1", "email": "a@example.com"})
	s.add(models.CollectionUsers, doc{"_id": "u2", "email": "b@example.com"})

	s.add(models.CollectionProjects, doc{"_id": "p1", "userId": "u1"})
	s.add(models.CollectionProjects, doc{"_id": "p2", "userId": "u1"})
	s.add(models.CollectionProjects, doc{"_id": "p3", "userId": "u2"})

	s.add(models.CollectionFloorPlans, doc{"_id": "f1", "projectId": "p1", "userId": "u1"})
	s.add(models.CollectionFloorPlans, doc{"_id": "f2", "projectId": "p1", "userId": "u1"})
	s.add(models.CollectionFloorPlans, doc{"_id": "f3", "projectId": "p2", "userId": "u1"})
	s.add(models.CollectionFloorPlans, doc{"_id": "f4", "projectId": "p3", "userId": "u2"})

	s.add(models.CollectionQueries, doc{"_id": "q1", "projectId": "p1", "userId": "u1"})
	s.add(models.CollectionQueries, doc{"_id": "q2", "userId": "u1"})
	s.add(models.CollectionQueries, doc{"_id": "q3", "projectId": "p2", "userId": "u1"})
	s.add(models.CollectionQueries, doc{"_id": "q4", "projectId": "p3", "userId": "u2"})

	s.add(models.CollectionActivities, doc{"_id": "a1", "userId": "u1", "type": models.ActivityLogin})
	s.add(models.CollectionActivities, doc{"_id": "a2", "userId": "u1", "resourceId": "p1", "type": models.ActivityProjectCreated})
	s.add(models.CollectionActivities, doc{"_id": "a3", "userId": "u2", "resourceId": "p3", "type": models.ActivityProjectCreated})
	s.add(models.CollectionActivities, doc{"_id": "a4", "userId": "admin", "resourceId": "p1", "type": models.AuditAdminLogin, "audit": true})
	s.add(models.CollectionActivities, doc{"_id": "a5", "userId": "u1", "type": models.AuditProjectDeletedByOwner, "audit": true})
	return s
}

func newTestWorkflow(s Store) *Workflow {
	w := New(s)
	w.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return w
}

func ids(docs []doc) []string {
	var out []string
	for _, d := range docs {
		out = append(out, d["_id"].(string))
	}
	return out
}

func TestDeleteUserRemovesDependents(t *testing.T) {
	s := seed()
	res, err := newTestWorkflow(s).DeleteUser(context.Background(), "u1", "admin@example.com")
	require.NoError(t, err)

	assert.Equal(t, RootUser, res.Root)
	assert.Equal(t, "u1", res.ID)
	assert.Equal(t, map[string]int64{
		models.CollectionUsers:      1,
		models.CollectionProjects:   2,
		models.CollectionFloorPlans: 3,
		models.CollectionQueries:    3,
		models.CollectionActivities: 3,
	}, res.Removed)
	assert.NotEmpty(t, res.AuditID)

	snap := s.snapshot()
	assert.Equal(t, []string{"u2"}, ids(snap[models.CollectionUsers]))
	assert.Equal(t, []string{"p3"}, ids(snap[models.CollectionProjects]))
	assert.Equal(t, []string{"f4"}, ids(snap[models.CollectionFloorPlans]))
	assert.Equal(t, []string{"q4"}, ids(snap[models.CollectionQueries]))
	assert.Equal(t, []string{"a3", "a4", res.AuditID}, ids(snap[models.CollectionActivities]))

	audits := s.audits(models.AuditUserDeleted)
	require.Len(t, audits, 1)
	assert.Equal(t, "admin@example.com", audits[0]["userId"])
	assert.Equal(t, "u1", audits[0]["resourceId"])
	assert.Equal(t, true, audits[0]["audit"])
	assert.Contains(t, audits[0]["details"], "2 projects")
}

func TestDeleteUserWithoutProjects(t *testing.T) {
	s := newMemStore()
	s.add(models.CollectionUsers, doc{"_id": "u9"})
	s.add(models.CollectionQueries, doc{"_id": "q9", "userId": "u9"})

	res, err := newTestWorkflow(s).DeleteUser(context.Background(), "u9", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Removed[models.CollectionQueries])
	assert.Equal(t, int64(0), res.Removed[models.CollectionProjects])

	audits := s.audits(models.AuditUserDeleted)
	require.Len(t, audits, 1)
	assert.Equal(t, models.ActorAdmin, audits[0]["userId"])
}

func TestDeleteUserTwice(t *testing.T) {
	s := seed()
	w := newTestWorkflow(s)
	_, err := w.DeleteUser(context.Background(), "u1", "admin")
	require.NoError(t, err)

	before := s.snapshot()
	writes := s.writes
	_, err = w.DeleteUser(context.Background(), "u1", "admin")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, reflect.DeepEqual(before, s.snapshot()))
	assert.Equal(t, writes, s.writes)
	assert.Len(t, s.audits(models.AuditUserDeleted), 1)
}

func TestDeleteMissingRootWritesNothing(t *testing.T) {
	s := seed()
	w := newTestWorkflow(s)
	before := s.snapshot()

	_, err := w.DeleteUser(context.Background(), "nobody", "admin")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = w.DeleteProject(context.Background(), "p404", "admin")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = w.DeleteProject(context.Background(), "  ", "admin")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Zero(t, s.writes)
	assert.True(t, reflect.DeepEqual(before, s.snapshot()))
}

func TestDeleteProjectRemovesDependents(t *testing.T) {
	s := seed()
	res, err := newTestWorkflow(s).DeleteProject(context.Background(), "p1", "admin@example.com")
	require.NoError(t, err)

	assert.Equal(t, RootProject, res.Root)
	assert.Equal(t, map[string]int64{
		models.CollectionProjects:   1,
		models.CollectionFloorPlans: 2,
		models.CollectionQueries:    1,
		models.CollectionActivities: 1,
	}, res.Removed)

	snap := s.snapshot()
	assert.Equal(t, []string{"u1", "u2"}, ids(snap[models.CollectionUsers]))
	assert.Equal(t, []string{"p2", "p3"}, ids(snap[models.CollectionProjects]))
	assert.Equal(t, []string{"f3", "f4"}, ids(snap[models.CollectionFloorPlans]))
	assert.Equal(t, []string{"q2", "q3", "q4"}, ids(snap[models.CollectionQueries]))

	audits := s.audits(models.AuditProjectDeleted)
	require.Len(t, audits, 1)
	assert.Equal(t, "p1", audits[0]["resourceId"])
	assert.Equal(t, "admin@example.com", audits[0]["userId"])
	assert.Contains(t, audits[0]["details"], "of user u1")

	// the earlier audit record on p1 survives
	assert.Contains(t, ids(snap[models.CollectionActivities]), "a4")
}

func TestFailureHaltsPlan(t *testing.T) {
	plan := UserPlan("u1", []string{"p1", "p2"})
	for k := 1; k <= len(plan)+1; k++ {
		t.Run(fmt.Sprintf("fail at write %d", k), func(t *testing.T) {
			s := seed()
			s.failAfter = k
			_, err := newTestWorkflow(s).DeleteUser(context.Background(), "u1", "admin")
			require.Error(t, err)
			assert.ErrorIs(t, err, errInjected)

			var stepErr *StepError
			require.ErrorAs(t, err, &stepErr)
			if k <= len(plan) {
				assert.Equal(t, plan[k-1].Name, stepErr.Step)
			} else {
				assert.Equal(t, "audit record", stepErr.Step)
			}

			// exactly one failed write, nothing after it
			assert.Equal(t, k, s.writes)
			assert.Empty(t, s.audits(models.AuditUserDeleted))

			// the root is only gone once its own step ran
			if k <= len(plan) {
				assert.Equal(t, 2, s.count(models.CollectionUsers))
			} else {
				assert.Equal(t, 1, s.count(models.CollectionUsers))
			}
		})
	}
}

func TestOwnerDeleteThenUserDeleteLeavesNoReference(t *testing.T) {
	s := seed()
	w := newTestWorkflow(s)

	own, err := w.DeleteOwnProject(context.Background(), "p1")
	require.NoError(t, err)
	ownAudits := s.audits(models.AuditProjectDeletedByOwner)
	require.Len(t, ownAudits, 2)
	for _, d := range ownAudits {
		if d["_id"] == own.AuditID {
			assert.Equal(t, models.ActorOwner, d["userId"])
			assert.Equal(t, "p1", d["resourceId"])
			assert.Contains(t, d["details"], "of user u1")
		}
	}
	assert.Empty(t, s.audits(models.AuditProjectDeleted), "owner deletes are not admin actions")

	res, err := w.DeleteUser(context.Background(), "u1", "admin@example.com")
	require.NoError(t, err)

	for name, docs := range s.snapshot() {
		for _, d := range docs {
			if d["_id"] == res.AuditID {
				continue
			}
			for _, field := range []string{"_id", "userId", "resourceId"} {
				assert.NotEqual(t, "u1", d[field], "%s document %v still references the deleted user", name, d)
			}
		}
	}
}

func countResults(t *testing.T, errs []error) (ok, missing int) {
	t.Helper()
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNotFound):
			missing++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	return ok, missing
}

func TestConcurrentUserDeletesOneWins(t *testing.T) {
	s := seed()
	w := newTestWorkflow(s)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = w.DeleteUser(context.Background(), "u1", "admin")
		}(i)
	}
	wg.Wait()

	ok, missing := countResults(t, errs)
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, missing)

	audits := s.audits(models.AuditUserDeleted)
	require.Len(t, audits, 1)
	assert.Equal(t, "u1", audits[0]["resourceId"])
	assert.Equal(t, []string{"u2"}, ids(s.snapshot()[models.CollectionUsers]))
}

func TestConcurrentDeletesOneWins(t *testing.T) {
	s := seed()
	w := newTestWorkflow(s)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = w.DeleteProject(context.Background(), "p1", "admin")
		}(i)
	}
	wg.Wait()

	ok, missing := countResults(t, errs)
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, missing)

	var fresh int
	for _, d := range s.audits(models.AuditProjectDeleted) {
		if d["resourceId"] == "p1" {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
}

func TestPlansDeleteRootLast(t *testing.T) {
	for _, plan := range [][]Step{UserPlan("u1", []string{"p1"}), ProjectPlan("p1")} {
		require.NotEmpty(t, plan)
		for i, step := range plan {
			assert.Equal(t, i == len(plan)-1, step.Root, step.Name)
			if step.Collection == models.CollectionActivities {
				assert.Equal(t, step.Filter.Field == "resourceId", step.Filter.SkipAudit, step.Name)
			}
		}
	}
}
