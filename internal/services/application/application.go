// Package application contains the business logic for the application
// lifecycle: creation under quota, stop/restart through the remote
// command executor, the expiry cascade and the command-passthrough gate.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/solusikonsep/deploykit/internal/models"
	"github.com/solusikonsep/deploykit/internal/runner"
	"github.com/solusikonsep/deploykit/internal/services/subscription"
	"github.com/solusikonsep/deploykit/internal/storage"
)

// Lifecycle violations detected before any remote call. No remote side
// effect is attempted when one of these fires.
var (
	// ErrNoActiveSubscription means the user's current subscription does
	// not entitle them to the operation.
	ErrNoActiveSubscription = errors.New("no active subscription")
	// ErrQuotaExceeded means the plan's application quota is used up.
	ErrQuotaExceeded = errors.New("application quota exceeded")
	// ErrInvalidState means the operation is not valid for the
	// application's current lifecycle state.
	ErrInvalidState = errors.New("operation not valid for application state")
	// ErrNotFound means the application does not exist or is not owned
	// by the caller.
	ErrNotFound = errors.New("application not found")
	// ErrNameTaken means the requested name is already registered at the
	// remote host, by any user.
	ErrNameTaken = errors.New("application name already taken")
)

// BlockedError rejects a passthrough command that references the
// caller's stopped or expired applications, naming the offenders.
type BlockedError struct {
	Names []string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("cannot run commands on application(s) %s as they are stopped or expired",
		strings.Join(e.Names, ", "))
}

// Repository defines the application operations of the record store.
type Repository interface {
	CreateApplication(ctx context.Context, userUID, name string) (int, error)
	ListApplicationsByUser(ctx context.Context, userUID string) ([]*models.Application, error)
	GetApplicationByID(ctx context.Context, id int) (*models.Application, error)
	CountChargeableApplications(ctx context.Context, userUID string) (int, error)
	UpdateApplicationStatus(ctx context.Context, id int, from, to string) (int, error)
	ExpireActiveApplications(ctx context.Context, userUID string) ([]string, error)
}

// Entitlements is the slice of the subscription service this package
// consults before touching the remote host.
type Entitlements interface {
	Current(ctx context.Context, userUID string) (*models.Subscription, error)
	Quota(plan string) int
}

// Executor is the remote command boundary.
type Executor interface {
	Run(ctx context.Context, args []string) (runner.Result, error)
	StopApplication(ctx context.Context, appName string) (runner.StopResult, error)
}

// Service implements the application lifecycle.
type Service struct {
	repo     Repository
	subs     Entitlements
	executor Executor
	log      *slog.Logger
}

// New creates an application Service.
func New(repo Repository, subs Entitlements, executor Executor, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		subs:     subs,
		executor: executor,
		log:      log,
	}
}

// Overview is a user's applications together with their quota usage.
type Overview struct {
	Applications []*models.Application `json:"applications"`
	Quota        int                   `json:"quota"`
	Used         int                   `json:"used"`
}

// requireActiveSubscription loads the caller's current subscription and
// rejects with ErrNoActiveSubscription unless it entitles them now.
func (s *Service) requireActiveSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	sub, err := s.subs.Current(ctx, userUID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoActiveSubscription
		}
		return nil, err
	}
	if !subscription.ActiveNow(sub) {
		return nil, ErrNoActiveSubscription
	}
	return sub, nil
}

// Create registers a new application. Requires an active subscription
// and free quota; expired applications stay in history but do not count
// against the quota. The name must be free across all users because it
// doubles as the remote host's identifier.
func (s *Service) Create(ctx context.Context, userUID, name string) (*models.Application, error) {
	sub, err := s.requireActiveSubscription(ctx, userUID)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountChargeableApplications(ctx, userUID)
	if err != nil {
		return nil, err
	}
	quota := s.subs.Quota(sub.Plan)
	if count >= quota {
		return nil, fmt.Errorf("%w: limit of %d applications for plan %s", ErrQuotaExceeded, quota, sub.Plan)
	}

	id, err := s.repo.CreateApplication(ctx, userUID, name)
	if err != nil {
		if errors.Is(err, storage.ErrNameTaken) {
			return nil, ErrNameTaken
		}
		return nil, err
	}

	s.log.Info("created application",
		slog.Int("id", id),
		slog.String("name", name),
		slog.String("user_uid", userUID))
	return &models.Application{
		ID:      id,
		UserUID: userUID,
		Name:    name,
		Status:  models.ApplicationActive,
	}, nil
}

// List returns the user's applications and quota usage. Quota reads as
// zero when the current subscription is missing or not active.
func (s *Service) List(ctx context.Context, userUID string) (*Overview, error) {
	apps, err := s.repo.ListApplicationsByUser(ctx, userUID)
	if err != nil {
		return nil, err
	}

	quota := 0
	sub, err := s.subs.Current(ctx, userUID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if subscription.ActiveNow(sub) {
		quota = s.subs.Quota(sub.Plan)
	}

	used := 0
	for _, app := range apps {
		if app.Status != models.ApplicationExpired {
			used++
		}
	}

	return &Overview{
		Applications: apps,
		Quota:        quota,
		Used:         used,
	}, nil
}

// owned loads an application and verifies the caller owns it. A row
// owned by someone else reads as not found.
func (s *Service) owned(ctx context.Context, userUID string, appID int) (*models.Application, error) {
	app, err := s.repo.GetApplicationByID(ctx, appID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if app.UserUID != userUID {
		return nil, ErrNotFound
	}
	return app, nil
}

// Stop scales the application down through the executor and records the
// stopped status. Executor failure leaves the stored status unchanged
// and surfaces the captured error detail to the caller.
func (s *Service) Stop(ctx context.Context, userUID string, appID int) (runner.StopResult, error) {
	if _, err := s.requireActiveSubscription(ctx, userUID); err != nil {
		return runner.StopResult{}, err
	}
	app, err := s.owned(ctx, userUID, appID)
	if err != nil {
		return runner.StopResult{}, err
	}
	if app.Status != models.ApplicationActive {
		return runner.StopResult{}, fmt.Errorf("%w: cannot stop %s application", ErrInvalidState, app.Status)
	}

	result, err := s.executor.StopApplication(ctx, app.Name)
	if err != nil {
		return runner.StopResult{}, err
	}

	count, err := s.repo.UpdateApplicationStatus(ctx, appID, models.ApplicationActive, models.ApplicationStopped)
	if err != nil {
		return result, err
	}
	if count == 0 {
		// A concurrent transition won the race after the remote call.
		s.log.Warn("stop recorded remotely but row changed concurrently",
			slog.Int("id", appID))
	}

	s.log.Info("stopped application",
		slog.String("name", app.Name),
		slog.Bool("destroyed", result.Destroyed))
	return result, nil
}

// Restart scales a stopped application back up. Only the stopped state
// restarts; expired applications are terminal.
func (s *Service) Restart(ctx context.Context, userUID string, appID int) (runner.Result, error) {
	if _, err := s.requireActiveSubscription(ctx, userUID); err != nil {
		return runner.Result{}, err
	}
	app, err := s.owned(ctx, userUID, appID)
	if err != nil {
		return runner.Result{}, err
	}
	if app.Status != models.ApplicationStopped {
		return runner.Result{}, fmt.Errorf("%w: cannot restart %s application", ErrInvalidState, app.Status)
	}

	result, err := s.executor.Run(ctx, []string{"ps:scale", app.Name, "web=1"})
	if err != nil {
		return runner.Result{}, err
	}
	if !result.Success {
		return result, fmt.Errorf("%w: exit code %d: %s",
			runner.ErrCommandFailed, result.ExitCode, result.ErrorOutput)
	}

	if _, err := s.repo.UpdateApplicationStatus(ctx, appID, models.ApplicationStopped, models.ApplicationActive); err != nil {
		return result, err
	}

	s.log.Info("restarted application", slog.String("name", app.Name))
	return result, nil
}

// CascadeExpire flips every active application of the user to expired.
// Called only by the reconciliation sweep after a subscription expires.
// This is local bookkeeping: the remote host is not contacted, so a
// remotely running workload stays reachable until an operator acts on
// the published event. Stopped applications are left as they are.
func (s *Service) CascadeExpire(ctx context.Context, userUID string) ([]string, error) {
	names, err := s.repo.ExpireActiveApplications(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if len(names) > 0 {
		s.log.Info("expired applications",
			slog.String("user_uid", userUID),
			slog.Any("names", names))
	}
	return names, nil
}

// GuardArgs rejects a passthrough command when any argument matches the
// name of a stopped or expired application of the caller. The check runs
// before the executor, so no remote side effect is attempted.
func (s *Service) GuardArgs(ctx context.Context, userUID string, args []string) error {
	apps, err := s.repo.ListApplicationsByUser(ctx, userUID)
	if err != nil {
		return err
	}

	unavailable := make(map[string]bool, len(apps))
	for _, app := range apps {
		if app.Status == models.ApplicationStopped || app.Status == models.ApplicationExpired {
			unavailable[app.Name] = true
		}
	}

	var blocked []string
	for _, arg := range args {
		if unavailable[arg] {
			blocked = append(blocked, arg)
		}
	}
	if len(blocked) > 0 {
		return &BlockedError{Names: blocked}
	}
	return nil
}

// RunCommand executes an arbitrary command against the remote host on
// behalf of the user, after the entitlement and passthrough checks.
func (s *Service) RunCommand(ctx context.Context, userUID string, args []string) (runner.Result, error) {
	if _, err := s.requireActiveSubscription(ctx, userUID); err != nil {
		return runner.Result{}, err
	}
	if err := s.GuardArgs(ctx, userUID, args); err != nil {
		return runner.Result{}, err
	}
	return s.executor.Run(ctx, args)
}

// Deploy initiates a deployment of the named project. A project matching
// one of the caller's stopped or expired applications is rejected before
// the remote call.
func (s *Service) Deploy(ctx context.Context, userUID, project string) (runner.Result, error) {
	if _, err := s.requireActiveSubscription(ctx, userUID); err != nil {
		return runner.Result{}, err
	}

	apps, err := s.repo.ListApplicationsByUser(ctx, userUID)
	if err != nil {
		return runner.Result{}, err
	}
	for _, app := range apps {
		if app.Name == project &&
			(app.Status == models.ApplicationStopped || app.Status == models.ApplicationExpired) {
			return runner.Result{}, &BlockedError{Names: []string{project}}
		}
	}

	return s.executor.Run(ctx, []string{"apps:create", project})
}
