package registration

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/miradi/core"
	"github.com/trezcool/miradi/core/project"
	"github.com/trezcool/miradi/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("registration not found")
	ErrInvalidDecision = errors.New("decision must be approved or rejected")
	ErrAlreadyDecided  = errors.New("registration has already been decided")
)

type (
	// PlannerEntry is the display row of a student's draft ranking. Active
	// and Opacity derive purely from position and are recomputed on every
	// reorder.
	PlannerEntry struct {
		Candidate
		Priority int     `json:"priority"` // 1-based position
		Active   bool    `json:"active"`
		Opacity  float64 `json:"opacity"`
	}

	// SubmitResult is the outcome of one submitted preference.
	SubmitResult struct {
		ProjectID  string `json:"project_id"`
		Title      string `json:"title"`
		Priority   int    `json:"priority"`
		StatusCode int    `json:"status_code,omitempty"` // 0 = unknown
		Message    string `json:"message,omitempty"`
	}

	// SubmitReport partitions a submission's outcomes per item; a submission
	// never fails as a whole.
	SubmitReport struct {
		Succeeded []SubmitResult `json:"succeeded"`
		Failed    []SubmitResult `json:"failed"`
	}

	Service interface {
		// PlannerView returns the student's draft ranking, seeding it from
		// the projects currently open for registration on first access.
		PlannerView(ctx context.Context, studentID string) ([]PlannerEntry, error)
		// MoveItem reorders the student's draft; it reports whether the
		// order changed.
		MoveItem(studentID, activeID, overID string) (bool, error)
		StartDrag(studentID, id string) error
		EndDrag(studentID string) error
		// Submit persists the draft's active preferences, one record per
		// project, priority = position. All items settle before it returns.
		Submit(ctx context.Context, student user.User) (SubmitReport, error)
		MyRegistrations(ctx context.Context, studentID string) ([]Registration, error)
		MyRegistrationIDs(ctx context.Context, studentID string) ([]string, error)
		SummaryByProject(ctx context.Context, projectID string) (ProjectSummary, error)
		// Decide approves or rejects a pending registration.
		Decide(ctx context.Context, registrationID string, decision Status) (Registration, error)
	}

	service struct {
		repo    Repository
		projSvc project.Service
		usrSvc  user.Service
		mailSvc core.EmailService
		cache   *core.Cache
		planner *Planner

		maxActive       int
		inactiveOpacity float64
		summaryTTL      time.Duration
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, projSvc project.Service, usrSvc user.Service, mailSvc core.EmailService, cache *core.Cache) Service {
	return &service{
		repo:            repo,
		projSvc:         projSvc,
		usrSvc:          usrSvc,
		mailSvc:         mailSvc,
		cache:           cache,
		planner:         NewPlanner(),
		maxActive:       core.Conf.Registration.MaxActivePreferences,
		inactiveOpacity: core.Conf.Registration.InactiveOpacity,
		summaryTTL:      core.Conf.Registration.SummaryCacheTTL,
	}
}

// cache keys

func studentRegsKey(studentID string) string   { return "student:registrations:" + studentID }
func studentRegIDsKey(studentID string) string { return "student:registration-ids:" + studentID }
func projectRegsKey(projectID string) string   { return "project:registrations:" + projectID }

func (svc *service) PlannerView(ctx context.Context, studentID string) ([]PlannerEntry, error) {
	list, ok := svc.planner.Session(studentID)
	if !ok {
		prjs, err := svc.projSvc.OpenForRegistration(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "loading open projects")
		}
		candidates := make([]Candidate, 0, len(prjs))
		for _, prj := range prjs {
			candidates = append(candidates, Candidate{
				ID:            prj.ID,
				Title:         prj.Title,
				FacultyName:   prj.FacultyName,
				ProgrammeName: prj.ProgrammeName,
			})
		}
		list = svc.planner.Seed(studentID, candidates)
	}

	items := list.Items()
	entries := make([]PlannerEntry, 0, len(items))
	for i, cand := range items {
		entry := PlannerEntry{
			Candidate: cand,
			Priority:  i + 1,
			Active:    i < svc.maxActive,
			Opacity:   1.0,
		}
		if !entry.Active {
			entry.Opacity = svc.inactiveOpacity
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (svc *service) MoveItem(studentID, activeID, overID string) (bool, error) {
	return svc.planner.MoveItem(studentID, activeID, overID)
}

func (svc *service) StartDrag(studentID, id string) error {
	list, ok := svc.planner.Session(studentID)
	if !ok {
		return ErrNoPlannerSession
	}
	list.StartDrag(id)
	return nil
}

func (svc *service) EndDrag(studentID string) error {
	list, ok := svc.planner.Session(studentID)
	if !ok {
		return ErrNoPlannerSession
	}
	list.EndDrag()
	return nil
}

func (svc *service) Submit(ctx context.Context, student user.User) (SubmitReport, error) {
	list, ok := svc.planner.Session(student.ID)
	if !ok {
		return SubmitReport{}, ErrNoPlannerSession
	}
	active := list.Active(svc.maxActive)

	// a project may have closed since the draft was seeded
	open, err := svc.projSvc.OpenForRegistration(ctx)
	if err != nil {
		return SubmitReport{}, errors.Wrap(err, "loading open projects")
	}
	openIDs := make(map[string]bool, len(open))
	for _, prj := range open {
		openIDs[prj.ID] = true
	}

	// each preference is persisted independently; one failure never blocks
	// the others and all must settle before the report is assembled
	now := time.Now().UTC()
	outcomes := make([]error, len(active))
	var wg sync.WaitGroup
	for i, cand := range active {
		wg.Add(1)
		go func(i int, cand Candidate) {
			defer wg.Done()
			if !openIDs[cand.ID] {
				outcomes[i] = project.ErrNotOpen
				return
			}
			_, err := svc.repo.UpsertRegistration(ctx, Registration{
				StudentID: student.ID,
				ProjectID: cand.ID,
				Priority:  i + 1,
				Status:    StatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			})
			outcomes[i] = err
		}(i, cand)
	}
	wg.Wait()

	report := SubmitReport{Succeeded: []SubmitResult{}, Failed: []SubmitResult{}}
	for i, cand := range active {
		result := SubmitResult{ProjectID: cand.ID, Title: cand.Title, Priority: i + 1}
		if err := outcomes[i]; err != nil {
			result.StatusCode = ExtractStatusCode(err)
			result.Message = errors.Cause(err).Error()
			report.Failed = append(report.Failed, result)
		} else {
			report.Succeeded = append(report.Succeeded, result)
		}
	}

	if len(report.Succeeded) == 0 {
		// nothing changed server-side; cached views are still valid
		return report, nil
	}

	// prior pending preferences that fell out of the active window go away;
	// failed items keep their previous record
	keep := make([]string, 0, len(active))
	for _, cand := range active {
		keep = append(keep, cand.ID)
	}
	if err := svc.repo.DeletePendingRegistrationsExcept(ctx, student.ID, keep); err != nil {
		return report, errors.Wrap(err, "pruning stale registrations")
	}

	svc.cache.Invalidate(studentRegsKey(student.ID), studentRegIDsKey(student.ID))
	for _, result := range report.Succeeded {
		svc.cache.Invalidate(projectRegsKey(result.ProjectID))
	}

	go svc.sendSubmissionMail(student, report)
	return report, nil
}

func (svc *service) sendSubmissionMail(student user.User, report SubmitReport) {
	lines := make([]string, 0, len(report.Succeeded))
	for _, result := range report.Succeeded {
		lines = append(lines, fmt.Sprintf("%d. %s", result.Priority, result.Title))
	}
	svc.mailSvc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: student.Name, Address: student.Email}},
			Subject:      "Project Registration Received",
			TemplateName: "registration-submitted",
			TemplateData: struct {
				Name        string
				Preferences string
			}{
				Name:        student.Name,
				Preferences: strings.Join(lines, "\n"),
			},
		},
	)
}

func (svc *service) MyRegistrations(ctx context.Context, studentID string) ([]Registration, error) {
	val, err := svc.cache.GetOrLoad(studentRegsKey(studentID), svc.summaryTTL, func() (interface{}, error) {
		regs, err := svc.repo.QueryStudentRegistrations(ctx, studentID)
		if err != nil {
			return nil, errors.Wrap(err, "querying student registrations")
		}
		if regs == nil {
			regs = []Registration{}
		}
		return regs, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]Registration), nil
}

func (svc *service) MyRegistrationIDs(ctx context.Context, studentID string) ([]string, error) {
	val, err := svc.cache.GetOrLoad(studentRegIDsKey(studentID), svc.summaryTTL, func() (interface{}, error) {
		regs, err := svc.MyRegistrations(ctx, studentID)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(regs))
		for _, reg := range regs {
			ids = append(ids, reg.ProjectID)
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]string), nil
}

func (svc *service) SummaryByProject(ctx context.Context, projectID string) (ProjectSummary, error) {
	prj, err := svc.projSvc.GetByID(ctx, projectID)
	if err != nil {
		return ProjectSummary{}, err
	}

	val, err := svc.cache.GetOrLoad(projectRegsKey(projectID), svc.summaryTTL, func() (interface{}, error) {
		regs, err := svc.repo.QueryProjectRegistrations(ctx, projectID)
		if err != nil {
			return nil, errors.Wrap(err, "querying project registrations")
		}
		if regs == nil {
			regs = []StudentRegistration{}
		}
		return regs, nil
	})
	if err != nil {
		return ProjectSummary{}, err
	}

	regs := val.([]StudentRegistration)
	return ProjectSummary{
		ProjectID:     prj.ID,
		Title:         prj.Title,
		TotalSignUps:  len(regs),
		Registrations: regs,
	}, nil
}

func (svc *service) Decide(ctx context.Context, registrationID string, decision Status) (Registration, error) {
	if decision != StatusApproved && decision != StatusRejected {
		return Registration{}, core.NewValidationError(ErrInvalidDecision, core.FieldError{Field: "decision", Error: ErrInvalidDecision.Error()})
	}

	reg, err := svc.repo.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		return Registration{}, err
	}
	if reg.Status != StatusPending {
		return Registration{}, core.NewValidationError(ErrAlreadyDecided)
	}

	reg, err = svc.repo.UpdateRegistrationStatus(ctx, registrationID, decision)
	if err != nil {
		return Registration{}, errors.Wrap(err, "updating registration status")
	}

	svc.cache.Invalidate(
		projectRegsKey(reg.ProjectID),
		studentRegsKey(reg.StudentID),
		studentRegIDsKey(reg.StudentID),
	)

	if student, err := svc.usrSvc.GetByID(ctx, reg.StudentID); err == nil {
		go svc.sendDecisionMail(student, reg)
	}
	return reg, nil
}

func (svc *service) sendDecisionMail(student user.User, reg Registration) {
	svc.mailSvc.SendMessages(
		&core.EmailMessage{
			To:      []mail.Address{{Name: student.Name, Address: student.Email}},
			Subject: "Project Registration Update",
			BodyStr: fmt.Sprintf("Hi %s,\n\nYour project registration (priority %d) has been %s.", student.Name, reg.Priority, reg.Status),
		},
	)
}
