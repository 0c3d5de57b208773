// Package cascade removes a user or a project together with every document
// that references it, then appends an audit record.
//
// A deletion is an ordered plan of (collection, filter) steps run by a small
// interpreter. Dependents always come before the root, so an interrupted run
// can leave orphaned dependents but never a root with dangling children.
// Completed steps are not rolled back; the first storage error stops the run.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"siteplanner/internal/logging"
	"siteplanner/internal/models"
)

var ErrNotFound = errors.New("not found")

type RootKind string

const (
	RootUser    RootKind = "user"
	RootProject RootKind = "project"
)

// Step deletes every document in Collection matching Filter. A Root step that
// deletes nothing means another request removed the root first.
type Step struct {
	Name       string
	Collection string
	Filter     Filter
	Root       bool
}

// StepError wraps the storage failure that halted a plan.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("cascade step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type Result struct {
	Root    RootKind         `json:"root"`
	ID      string           `json:"id"`
	Removed map[string]int64 `json:"removed"`
	AuditID string           `json:"auditId,omitempty"`
}

type Workflow struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Workflow {
	return &Workflow{store: store, now: time.Now}
}

// UserPlan lists the steps for deleting userID, whose projects are projectIDs.
// Every activity whose userId is the user goes, audit rows included; audit
// rows only describing the user's projects stay.
func UserPlan(userID string, projectIDs []string) []Step {
	projectRefs := In("projectId", projectIDs)
	resourceRefs := In("resourceId", projectIDs)
	resourceRefs.SkipAudit = true

	return []Step{
		{Name: "floor plans of user projects", Collection: models.CollectionFloorPlans, Filter: projectRefs},
		{Name: "queries on user projects", Collection: models.CollectionQueries, Filter: projectRefs},
		{Name: "activities on user projects", Collection: models.CollectionActivities, Filter: resourceRefs},
		{Name: "projects", Collection: models.CollectionProjects, Filter: Eq("userId", userID)},
		{Name: "queries", Collection: models.CollectionQueries, Filter: Eq("userId", userID)},
		{Name: "activities", Collection: models.CollectionActivities, Filter: Eq("userId", userID)},
		{Name: "user", Collection: models.CollectionUsers, Filter: Eq("_id", userID), Root: true},
	}
}

// ProjectPlan lists the steps for deleting projectID.
func ProjectPlan(projectID string) []Step {
	resourceRefs := Eq("resourceId", projectID)
	resourceRefs.SkipAudit = true

	return []Step{
		{Name: "floor plans", Collection: models.CollectionFloorPlans, Filter: Eq("projectId", projectID)},
		{Name: "queries", Collection: models.CollectionQueries, Filter: Eq("projectId", projectID)},
		{Name: "activities", Collection: models.CollectionActivities, Filter: resourceRefs},
		{Name: "project", Collection: models.CollectionProjects, Filter: Eq("_id", projectID), Root: true},
	}
}

// DeleteUser removes the user, their projects and everything referencing
// either. actor is recorded on the audit entry.
func (w *Workflow) DeleteUser(ctx context.Context, userID, actor string) (*Result, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrNotFound
	}

	found, err := w.store.Values(ctx, models.CollectionUsers, Eq("_id", userID), "_id")
	if err != nil {
		return nil, w.fail(RootUser, userID, "lookup user", err)
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}

	projectIDs, err := w.store.Values(ctx, models.CollectionProjects, Eq("userId", userID), "_id")
	if err != nil {
		return nil, w.fail(RootUser, userID, "lookup projects", err)
	}

	result := &Result{Root: RootUser, ID: userID, Removed: map[string]int64{}}
	if err := w.run(ctx, result, UserPlan(userID, projectIDs)); err != nil {
		return nil, err
	}

	details := fmt.Sprintf("deleted user %s: %d projects, %d floor plans, %d queries, %d activities",
		userID,
		result.Removed[models.CollectionProjects],
		result.Removed[models.CollectionFloorPlans],
		result.Removed[models.CollectionQueries],
		result.Removed[models.CollectionActivities],
	)
	if err := w.audit(ctx, result, actor, models.AuditUserDeleted, details); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteProject removes the project and everything referencing it on behalf
// of an admin.
func (w *Workflow) DeleteProject(ctx context.Context, projectID, actor string) (*Result, error) {
	return w.deleteProject(ctx, projectID, actor, models.AuditProjectDeleted)
}

// DeleteOwnProject is DeleteProject started by the project owner. The audit
// row names ActorOwner; the owner's uid only appears in its details, so a
// later DeleteUser leaves nothing pointing at them.
func (w *Workflow) DeleteOwnProject(ctx context.Context, projectID string) (*Result, error) {
	return w.deleteProject(ctx, projectID, models.ActorOwner, models.AuditProjectDeletedByOwner)
}

func (w *Workflow) deleteProject(ctx context.Context, projectID, actor, kind string) (*Result, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, ErrNotFound
	}

	owners, err := w.store.Values(ctx, models.CollectionProjects, Eq("_id", projectID), "userId")
	if err != nil {
		return nil, w.fail(RootProject, projectID, "lookup project", err)
	}
	if len(owners) == 0 {
		return nil, ErrNotFound
	}
	owner := owners[0]

	result := &Result{Root: RootProject, ID: projectID, Removed: map[string]int64{}}
	if err := w.run(ctx, result, ProjectPlan(projectID)); err != nil {
		return nil, err
	}

	details := fmt.Sprintf("deleted project %s of user %s: %d floor plans, %d queries, %d activities",
		projectID,
		owner,
		result.Removed[models.CollectionFloorPlans],
		result.Removed[models.CollectionQueries],
		result.Removed[models.CollectionActivities],
	)
	if err := w.audit(ctx, result, actor, kind, details); err != nil {
		return nil, err
	}
	return result, nil
}

func (w *Workflow) run(ctx context.Context, result *Result, plan []Step) error {
	for _, step := range plan {
		if len(step.Filter.Values) == 0 {
			continue
		}
		removed, err := w.store.DeleteMany(ctx, step.Collection, step.Filter)
		if err != nil {
			return w.fail(result.Root, result.ID, step.Name, err)
		}
		if step.Root && removed == 0 {
			logging.Area("CASCADE").WithField("id", result.ID).Info("root already deleted by a concurrent request")
			return ErrNotFound
		}
		result.Removed[step.Collection] += removed
		logging.Area("CASCADE").WithField("id", result.ID).
			WithField("step", step.Name).
			WithField("removed", removed).
			Debug("step done")
	}
	return nil
}

func (w *Workflow) audit(ctx context.Context, result *Result, actor, kind, details string) error {
	if strings.TrimSpace(actor) == "" {
		actor = models.ActorAdmin
	}
	id, err := w.store.InsertActivity(ctx, models.Activity{
		UserID:     actor,
		Type:       kind,
		Details:    details,
		ResourceID: result.ID,
		Audit:      true,
		CreatedAt:  w.now().UTC(),
	})
	if err != nil {
		return w.fail(result.Root, result.ID, "audit record", err)
	}
	result.AuditID = id
	logging.Area("CASCADE").WithField("id", result.ID).WithField("actor", actor).Info(details)
	return nil
}

func (w *Workflow) fail(root RootKind, id, step string, err error) error {
	logging.Area("CASCADE").WithError(err).
		WithField("root", string(root)).
		WithField("id", id).
		WithField("step", step).
		Error("cascade delete halted")
	return &StepError{Step: step, Err: err}
}
