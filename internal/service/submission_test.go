package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ifrs17/internal/models"
	"ifrs17/internal/repository"
)

// submissionRepo is an in-memory publication store. Unused interface methods
// panic via the embedded nil interface.
type submissionRepo struct {
	repository.Repository
	results     map[uint64]*models.EngineResult
	submissions []models.SubmittedReport
	nextID      uint64
}

func (r *submissionRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (r *submissionRepo) GetEngineResult(ctx context.Context, id uint64) (*models.EngineResult, error) {
	return r.results[id], nil
}

func (r *submissionRepo) ListActiveSubmittedReportsTx(ctx context.Context, tx *gorm.DB, reportType string, year int, quarter string) ([]models.SubmittedReport, error) {
	var out []models.SubmittedReport
	for _, s := range r.submissions {
		if s.Status == models.SubmissionStatusActive && s.ReportType == reportType && s.Year == year && s.Quarter == quarter {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *submissionRepo) MarkSubmittedReportSupersededTx(ctx context.Context, tx *gorm.DB, id uint64) error {
	for i := range r.submissions {
		if r.submissions[i].ID == id {
			r.submissions[i].Status = models.SubmissionStatusSuperseded
		}
	}
	return nil
}

func (r *submissionRepo) CreateSubmittedReportTx(ctx context.Context, tx *gorm.DB, item *models.SubmittedReport) error {
	r.nextID++
	item.ID = r.nextID
	r.submissions = append(r.submissions, *item)
	return nil
}

func (r *submissionRepo) GetSubmittedReport(ctx context.Context, id uint64) (*models.SubmittedReport, error) {
	for i := range r.submissions {
		if r.submissions[i].ID == id {
			return &r.submissions[i], nil
		}
	}
	return nil, nil
}

func newSubmissionRepo() *submissionRepo {
	return &submissionRepo{
		results: map[uint64]*models.EngineResult{
			101: {ID: 101, RunID: "run-1", ReportType: models.ReportTypeDisclosure, Year: 2025, Quarter: "Q1"},
			102: {ID: 102, RunID: "run-2", ReportType: models.ReportTypeDisclosure, Year: 2025, Quarter: "Q1"},
			103: {ID: 103, RunID: "run-3", ReportType: models.ReportTypeDisclosure, Year: 2025, Quarter: "Q2"},
		},
	}
}

func TestSubmitDemotesPriorActive(t *testing.T) {
	repo := newSubmissionRepo()
	svc := &SubmissionService{Repo: repo, Logger: zap.NewNop()}
	ctx := context.Background()

	first, err := svc.Submit(ctx, 101, "alice")
	if err != nil {
		t.Fatalf("submit first: %v", err)
	}
	if first.Status != models.SubmissionStatusActive || first.RunID != "run-1" {
		t.Fatalf("first=%+v", first)
	}

	second, err := svc.Submit(ctx, 102, "bob")
	if err != nil {
		t.Fatalf("submit second: %v", err)
	}
	if second.Status != models.SubmissionStatusActive {
		t.Fatalf("second=%+v", second)
	}

	// Different quarter, unrelated key.
	if _, err := svc.Submit(ctx, 103, "carol"); err != nil {
		t.Fatalf("submit q2: %v", err)
	}

	active := 0
	for _, s := range repo.submissions {
		if s.ReportType == models.ReportTypeDisclosure && s.Year == 2025 && s.Quarter == "Q1" &&
			s.Status == models.SubmissionStatusActive {
			active++
			if s.EngineResultID != 102 {
				t.Fatalf("wrong active result: %+v", s)
			}
		}
	}
	if active != 1 {
		t.Fatalf("active rows for key=%d want 1", active)
	}

	demoted, _ := repo.GetSubmittedReport(ctx, first.ID)
	if demoted.Status != models.SubmissionStatusSuperseded {
		t.Fatalf("first submission not demoted: %+v", demoted)
	}
}

func TestSubmitUnknownResult(t *testing.T) {
	svc := &SubmissionService{Repo: newSubmissionRepo(), Logger: zap.NewNop()}
	_, err := svc.Submit(context.Background(), 999, "alice")
	if !errors.Is(err, ErrResultNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestResolveDanglingResult(t *testing.T) {
	repo := newSubmissionRepo()
	svc := &SubmissionService{Repo: repo, Logger: zap.NewNop()}
	ctx := context.Background()

	sub, err := svc.Submit(ctx, 101, "alice")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	gotSub, gotResult, err := svc.Resolve(ctx, sub.ID)
	if err != nil || gotSub == nil || gotResult == nil || gotResult.ID != 101 {
		t.Fatalf("resolve: sub=%v result=%v err=%v", gotSub, gotResult, err)
	}

	delete(repo.results, 101)
	gotSub, _, err = svc.Resolve(ctx, sub.ID)
	if !errors.Is(err, ErrDanglingResult) {
		t.Fatalf("err=%v", err)
	}
	if gotSub == nil {
		t.Fatalf("submission must still be returned for a dangling pointer")
	}
}

func TestResolveMissingSubmission(t *testing.T) {
	svc := &SubmissionService{Repo: newSubmissionRepo(), Logger: zap.NewNop()}
	sub, result, err := svc.Resolve(context.Background(), 404)
	if sub != nil || result != nil || err != nil {
		t.Fatalf("want triple nil, got %v %v %v", sub, result, err)
	}
}
