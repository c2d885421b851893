package enrollment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coursebridge/internal/logger"
	"coursebridge/internal/services/lms"
)

// Platform is the learning-platform surface the reconciler drives.
type Platform interface {
	FindUserByEmail(ctx context.Context, email string) (*lms.User, error)
	CreateUser(ctx context.Context, user lms.NewUser) (*lms.User, error)
	Enroll(ctx context.Context, userID, courseID string) error
	Unenroll(ctx context.Context, userID, courseID string) error
}

// State is the desired membership of a user in a course.
type State int

const (
	Enrolled State = iota
	Unenrolled
)

func (s State) String() string {
	switch s {
	case Enrolled:
		return "enrolled"
	case Unenrolled:
		return "unenrolled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome describes how the desired state was reached.
type Outcome string

const (
	OutcomeEnrolled    Outcome = "enrolled"
	OutcomeUnenrolled  Outcome = "unenrolled"
	OutcomeUserAbsent  Outcome = "user_absent"
	OutcomeNotEnrolled Outcome = "not_enrolled"
	OutcomeFailed      Outcome = "failed"
)

var (
	ErrMissingEmail  = errors.New("enrollment: customer email is required")
	ErrMissingCourse = errors.New("enrollment: course id is required")
)

// Request asks for one user/course pair to be brought to a desired state.
type Request struct {
	Email     string
	FirstName string
	LastName  string
	CourseID  string
	Desired   State
}

type Reconciler struct {
	platform Platform
	logger   *logger.Logger
}

func NewReconciler(platform Platform, logger *logger.Logger) *Reconciler {
	return &Reconciler{
		platform: platform,
		logger:   logger,
	}
}

// Enroll makes sure the customer exists on the platform and is enrolled.
func (r *Reconciler) Enroll(ctx context.Context, email, firstName, lastName, courseID string) (Outcome, error) {
	return r.Reconcile(ctx, Request{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		CourseID:  courseID,
		Desired:   Enrolled,
	})
}

// Unenroll makes sure the customer is not enrolled. An unknown user or a
// missing membership already satisfies that.
func (r *Reconciler) Unenroll(ctx context.Context, email, courseID string) (Outcome, error) {
	return r.Reconcile(ctx, Request{
		Email:    email,
		CourseID: courseID,
		Desired:  Unenrolled,
	})
}

// Reconcile runs find-user, optional create-user, and the enroll or unenroll
// call. Upstream failures are returned as-is; nothing is retried here.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) (Outcome, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return OutcomeFailed, ErrMissingEmail
	}
	if strings.TrimSpace(req.CourseID) == "" {
		return OutcomeFailed, ErrMissingCourse
	}

	user, err := r.platform.FindUserByEmail(ctx, email)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("find user: %w", err)
	}

	switch req.Desired {
	case Enrolled:
		if user == nil {
			user, err = r.createUser(ctx, req, email)
			if err != nil {
				return OutcomeFailed, err
			}
		}
		if err := r.platform.Enroll(ctx, user.ID, req.CourseID); err != nil {
			return OutcomeFailed, fmt.Errorf("enroll: %w", err)
		}
		r.logger.Info("Enrolled %s (user %s) in course %s", email, user.ID, req.CourseID)
		return OutcomeEnrolled, nil

	case Unenrolled:
		if user == nil {
			r.logger.Info("No LMS user for %s; nothing to unenroll from course %s", email, req.CourseID)
			return OutcomeUserAbsent, nil
		}
		if err := r.platform.Unenroll(ctx, user.ID, req.CourseID); err != nil {
			if lms.IsNotFound(err) {
				r.logger.Info("User %s was not enrolled in course %s", user.ID, req.CourseID)
				return OutcomeNotEnrolled, nil
			}
			return OutcomeFailed, fmt.Errorf("unenroll: %w", err)
		}
		r.logger.Info("Unenrolled %s (user %s) from course %s", email, user.ID, req.CourseID)
		return OutcomeUnenrolled, nil

	default:
		return OutcomeFailed, fmt.Errorf("enrollment: unknown desired state %v", req.Desired)
	}
}

// createUser re-checks existence right before creating so a user created by
// a concurrent request is reused instead of duplicated.
func (r *Reconciler) createUser(ctx context.Context, req Request, email string) (*lms.User, error) {
	existing, err := r.platform.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("re-check user: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	user, err := r.platform.CreateUser(ctx, lms.NewUser{
		Email:     email,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	r.logger.Info("Created LMS user %s for %s", user.ID, email)
	return user, nil
}
