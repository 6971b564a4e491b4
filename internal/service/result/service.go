// Package result implements the lab result lifecycle: technician submission,
// doctor review with a tamper-evidence gate, artifact rendering and
// access-code-gated patient retrieval.
package result

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meditrack/hospital-api/internal/artifact"
	"github.com/meditrack/hospital-api/internal/email"
	"github.com/meditrack/hospital-api/internal/model"
	"github.com/meditrack/hospital-api/internal/repository"
	"github.com/meditrack/hospital-api/internal/storage"
	apperrors "github.com/meditrack/hospital-api/pkg/errors"
	"github.com/meditrack/hospital-api/pkg/logger"
	"github.com/meditrack/hospital-api/pkg/metrics"
)

// AccessValidity is how long a minted access code stays usable.
const AccessValidity = 24 * time.Hour

type Service struct {
	tx       repository.TxRunner
	results  repository.TestResultRepository
	requests repository.TestRequestRepository
	patients repository.PatientRepository
	tests    repository.TestRepository
	access   repository.PatientAccessRepository
	audit    repository.AuditRepository
	outbox   repository.OutboxRepository
	store    *storage.Store
	renderer *artifact.Renderer
	mailer   email.Service
	metrics  *metrics.Metrics
	logger   *logger.Logger
	now      func() time.Time
}

func NewService(
	tx repository.TxRunner,
	results repository.TestResultRepository,
	requests repository.TestRequestRepository,
	patients repository.PatientRepository,
	tests repository.TestRepository,
	access repository.PatientAccessRepository,
	audit repository.AuditRepository,
	outbox repository.OutboxRepository,
	store *storage.Store,
	renderer *artifact.Renderer,
	mailer email.Service,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	return &Service{
		tx:       tx,
		results:  results,
		requests: requests,
		patients: patients,
		tests:    tests,
		access:   access,
		audit:    audit,
		outbox:   outbox,
		store:    store,
		renderer: renderer,
		mailer:   mailer,
		metrics:  m,
		logger:   log,
		now:      time.Now,
	}
}

// SubmitManual persists a structured result for a request assigned to the
// calling technician. When the request sits at needs_revision the existing
// result row is updated in place and its digest recomputed; no revision
// history is kept beyond the current values.
func (s *Service) SubmitManual(ctx context.Context, caller *model.Caller, req *model.SubmitResultRequest) (*model.TestResult, error) {
	digest, err := ComputeDigest(req.Results, req.Interpretation, req.Methodology, req.Comments, req.QualityControl)
	if err != nil {
		return nil, apperrors.BadRequest("invalid result payload", err)
	}
	resultsJSON, err := json.Marshal(req.Results)
	if err != nil {
		return nil, apperrors.BadRequest("invalid result payload", err)
	}

	var (
		result    *model.TestResult
		staleFile string
	)
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		request, err := s.requests.GetForUpdate(ctx, req.TestRequestID)
		if err != nil {
			return err
		}
		if request.LabTechnicianID == nil || *request.LabTechnicianID != caller.UserID {
			return apperrors.NotFound("test request", nil)
		}

		wasRevision := request.Status == model.RequestStatusNeedsRevision

		switch request.Status {
		case model.RequestStatusInProgress:
			result = &model.TestResult{
				TestRequestID:     request.ID,
				ResultType:        model.ResultTypeManual,
				ResultsJSON:       resultsJSON,
				Interpretation:    req.Interpretation,
				Methodology:       req.Methodology,
				Comments:          req.Comments,
				QualityControl:    req.QualityControl,
				ResultHash:        digest,
				Status:            model.ResultStatusSubmitted,
				LabTechnicianID:   caller.UserID,
				LabTechnicianName: caller.Name,
				LabTechSignature:  req.Signature,
				SubmittedAt:       req.SubmittedAt,
			}
			if err := s.results.Create(ctx, result); err != nil {
				return err
			}
		case model.RequestStatusNeedsRevision:
			// Resubmission: overwrite the existing result, discard the old digest.
			result, err = s.results.GetByRequest(ctx, request.ID)
			if err != nil {
				return err
			}
			if result.LabTechnicianID != caller.UserID {
				return apperrors.NotFound("test result", nil)
			}
			// A file result revised through the manual path becomes a manual
			// result. The superseded upload is deleted after commit so the
			// stored payload always matches the recorded digest.
			if result.ResultType == model.ResultTypeFile && result.ResultFilePath != nil {
				staleFile = *result.ResultFilePath
			}
			result.ResultType = model.ResultTypeManual
			result.ResultFilePath = nil
			result.ResultsJSON = resultsJSON
			result.Interpretation = req.Interpretation
			result.Methodology = req.Methodology
			result.Comments = req.Comments
			result.QualityControl = req.QualityControl
			result.ResultHash = digest
			result.Status = model.ResultStatusSubmitted
			result.LabTechSignature = req.Signature
			result.SubmittedAt = req.SubmittedAt
			result.DoctorRemarks = ""
			if err := s.results.Update(ctx, result); err != nil {
				return err
			}
		default:
			return apperrors.Precondition("test request not in progress")
		}

		if err := s.advanceRequest(ctx, request, model.RequestStatusPendingReview); err != nil {
			return err
		}

		action := model.AuditSubmitResult
		if wasRevision {
			action = model.AuditResubmit
		}
		if err := s.auditLog(ctx, caller.UserID, action, result.ID,
			fmt.Sprintf("lab technician submitted result for request %s", request.ID)); err != nil {
			return err
		}

		return s.emitEvent(ctx, model.EventResultSubmitted, model.ChannelDoctor, map[string]any{
			"testRequestId": request.ID,
			"resultId":      result.ID,
			"submittedBy":   caller.Name,
		})
	})
	if err != nil {
		return nil, err
	}

	if staleFile != "" {
		if rmErr := s.store.Remove(staleFile); rmErr != nil {
			s.logger.Error(rmErr, "failed to remove superseded result file", "path", staleFile)
		}
	}

	s.metrics.ResultsSubmitted.Inc()
	result.Results = req.Results
	return result, nil
}

// SubmitFile persists an uploaded result file. The file is written to
// durable storage before the transaction starts and removed again if the
// transaction fails, so no stored file exists without a DB referent. As
// with SubmitManual, a request at needs_revision takes the upload as a
// replacement for the existing result.
func (s *Service) SubmitFile(ctx context.Context, caller *model.Caller, req *model.SubmitFileResultRequest, fileBytes []byte) (*model.TestResult, error) {
	if len(fileBytes) == 0 {
		return nil, apperrors.BadRequest("no file uploaded", nil)
	}

	digest := ComputeFileDigest(fileBytes)

	filePath, err := s.store.Save(fileBytes, "result", ".pdf")
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	var (
		result    *model.TestResult
		staleFile string
	)
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		request, err := s.requests.GetForUpdate(ctx, req.TestRequestID)
		if err != nil {
			return err
		}
		if request.LabTechnicianID == nil || *request.LabTechnicianID != caller.UserID {
			return apperrors.NotFound("test request", nil)
		}

		wasRevision := request.Status == model.RequestStatusNeedsRevision

		switch request.Status {
		case model.RequestStatusInProgress:
			result = &model.TestResult{
				TestRequestID:     request.ID,
				ResultType:        model.ResultTypeFile,
				ResultFilePath:    &filePath,
				Interpretation:    req.Interpretation,
				Comments:          req.Comments,
				QualityControl:    req.QualityControl,
				ResultHash:        digest,
				Status:            model.ResultStatusSubmitted,
				LabTechnicianID:   caller.UserID,
				LabTechnicianName: caller.Name,
				LabTechSignature:  req.Signature,
				SubmittedAt:       req.SubmittedAt,
			}
			if err := s.results.Create(ctx, result); err != nil {
				return err
			}
		case model.RequestStatusNeedsRevision:
			// Resubmission: the replacement upload supersedes whatever the
			// result held before, manual values included.
			result, err = s.results.GetByRequest(ctx, request.ID)
			if err != nil {
				return err
			}
			if result.LabTechnicianID != caller.UserID {
				return apperrors.NotFound("test result", nil)
			}
			if result.ResultFilePath != nil {
				staleFile = *result.ResultFilePath
			}
			result.ResultType = model.ResultTypeFile
			result.ResultFilePath = &filePath
			result.ResultsJSON = nil
			result.Interpretation = req.Interpretation
			result.Methodology = ""
			result.Comments = req.Comments
			result.QualityControl = req.QualityControl
			result.ResultHash = digest
			result.Status = model.ResultStatusSubmitted
			result.LabTechSignature = req.Signature
			result.SubmittedAt = req.SubmittedAt
			result.DoctorRemarks = ""
			if err := s.results.Update(ctx, result); err != nil {
				return err
			}
		default:
			return apperrors.Precondition("test request not in progress")
		}

		if err := s.advanceRequest(ctx, request, model.RequestStatusPendingReview); err != nil {
			return err
		}

		action := model.AuditSubmitResult
		if wasRevision {
			action = model.AuditResubmit
		}
		if err := s.auditLog(ctx, caller.UserID, action, result.ID,
			fmt.Sprintf("lab technician uploaded result file for request %s", request.ID)); err != nil {
			return err
		}

		return s.emitEvent(ctx, model.EventResultSubmitted, model.ChannelDoctor, map[string]any{
			"testRequestId": request.ID,
			"resultId":      result.ID,
			"submittedBy":   caller.Name,
			"hasFile":       true,
		})
	})
	if err != nil {
		if rmErr := s.store.Remove(filePath); rmErr != nil {
			s.logger.Error(rmErr, "failed to clean up orphaned result file", "path", filePath)
		}
		return nil, err
	}

	if staleFile != "" {
		if rmErr := s.store.Remove(staleFile); rmErr != nil {
			s.logger.Error(rmErr, "failed to remove superseded result file", "path", staleFile)
		}
	}

	s.metrics.ResultsSubmitted.Inc()
	return result, nil
}

// ReviewOutcome is what Review returns to the handler. AccessCode is set
// only on approval and is delivered to the patient by email; handlers must
// not echo it unless explicitly configured for development.
type ReviewOutcome struct {
	Result     *model.TestResult
	Access     *model.PatientAccess
	AccessCode string
}

// Review applies a doctor's decision. The approval branch re-verifies the
// stored digest before anything becomes patient-visible; a mismatch aborts
// the whole transaction.
func (s *Service) Review(ctx context.Context, caller *model.Caller, req *model.ReviewResultRequest) (*ReviewOutcome, error) {
	decision := model.ResultStatus(req.Status)
	if decision == model.ResultStatusApproved && req.Signature == "" {
		return nil, apperrors.BadRequest("doctor signature required for approval", nil)
	}

	var (
		outcome      ReviewOutcome
		artifactPath string
		patient      *model.Patient
		test         *model.Test
	)

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		result, err := s.results.GetForUpdate(ctx, req.ResultID)
		if err != nil {
			return err
		}
		request, err := s.requests.GetForUpdate(ctx, result.TestRequestID)
		if err != nil {
			return err
		}
		if request.DoctorID != caller.UserID {
			return apperrors.NotFound("test result", nil)
		}
		if result.Status != model.ResultStatusSubmitted {
			return apperrors.Precondition("result not in submitted state")
		}

		switch decision {
		case model.ResultStatusApproved:
			if err := s.verifyIntegrity(ctx, result, "approval"); err != nil {
				return err
			}

			patient, err = s.patients.Get(ctx, request.PatientID)
			if err != nil {
				return err
			}
			test, err = s.tests.Get(ctx, request.TestID)
			if err != nil {
				return err
			}

			approvedAt := s.now()
			var params []model.ResultParameter
			if len(result.ResultsJSON) > 0 {
				if err := json.Unmarshal(result.ResultsJSON, &params); err != nil {
					return apperrors.Internal(err)
				}
			}

			artifactPath = s.store.Path("approved_result", ".pdf")
			if err := s.renderer.Render(artifactPath, artifact.RenderInput{
				Patient:          patient,
				Test:             test,
				Result:           result,
				Parameters:       params,
				DoctorName:       caller.Name,
				LabTechSignature: result.LabTechSignature,
				DoctorSignature:  req.Signature,
				ApprovedAt:       approvedAt,
			}); err != nil {
				return apperrors.Storage(err)
			}

			sig := req.Signature
			doctorName := caller.Name
			result.Status = model.ResultStatusApproved
			result.DoctorRemarks = req.Remarks
			result.DoctorSignature = &sig
			result.DoctorName = &doctorName
			result.ApprovedBy = &caller.UserID
			result.ApprovedAt = &approvedAt
			result.ArtifactPath = &artifactPath
			if err := s.results.Update(ctx, result); err != nil {
				return err
			}

			completedAt := approvedAt
			request.CompletedAt = &completedAt
			if err := s.advanceRequest(ctx, request, model.RequestStatusCompleted); err != nil {
				return err
			}

			code, err := GenerateAccessCode()
			if err != nil {
				return apperrors.Internal(err)
			}
			access := &model.PatientAccess{
				PatientID:    request.PatientID,
				TestResultID: result.ID,
				AccessCode:   code,
				ExpiresAt:    approvedAt.Add(AccessValidity),
			}
			if err := s.access.Create(ctx, access); err != nil {
				return err
			}
			outcome.Access = access
			outcome.AccessCode = code

			if err := s.auditLog(ctx, caller.UserID, model.AuditApproveResult, result.ID,
				fmt.Sprintf("doctor approved result %s", result.ID)); err != nil {
				return err
			}
			if err := s.emitEvent(ctx, model.EventResultApproved, model.ChannelPatient, map[string]any{
				"resultId":  result.ID,
				"patientId": request.PatientID,
				"testName":  test.Name,
			}); err != nil {
				return err
			}

		case model.ResultStatusRejected, model.ResultStatusRevision:
			result.Status = decision
			result.DoctorRemarks = req.Remarks
			if err := s.results.Update(ctx, result); err != nil {
				return err
			}

			target := model.RequestStatusRejected
			action := model.AuditRejectResult
			event := model.EventResultRejected
			if decision == model.ResultStatusRevision {
				target = model.RequestStatusNeedsRevision
				action = model.AuditRevisionAsked
				event = model.EventResultRevisionNeeded
			}
			if err := s.advanceRequest(ctx, request, target); err != nil {
				return err
			}
			if err := s.auditLog(ctx, caller.UserID, action, result.ID,
				fmt.Sprintf("doctor marked result %s as %s", result.ID, decision)); err != nil {
				return err
			}
			if err := s.emitEvent(ctx, event, model.ChannelLabTechnician, map[string]any{
				"resultId": result.ID,
				"status":   decision,
				"remarks":  req.Remarks,
			}); err != nil {
				return err
			}

		default:
			return apperrors.BadRequest("invalid status", nil)
		}

		outcome.Result = result
		return nil
	})
	if err != nil {
		// The artifact was written before commit; a failed transaction must
		// not leave it behind.
		if artifactPath != "" {
			if rmErr := s.store.Remove(artifactPath); rmErr != nil {
				s.logger.Error(rmErr, "failed to clean up orphaned artifact", "path", artifactPath)
			}
		}
		return nil, err
	}

	if decision == model.ResultStatusApproved {
		s.metrics.ResultsApproved.Inc()
		// Email is fire-and-forget and strictly post-commit.
		go s.sendResultEmail(patient, test, outcome.Result.ID, outcome.AccessCode, outcome.Access.ExpiresAt)
	} else {
		s.metrics.ResultsRejected.Inc()
	}

	return &outcome, nil
}

// Retrieve streams the approved artifact to the owning patient. Every
// failure short of an integrity violation is reported as the same generic
// denial so callers cannot probe for code validity or result existence.
func (s *Service) Retrieve(ctx context.Context, caller *model.Caller, resultID uuid.UUID, accessCode string) ([]byte, error) {
	if caller.PatientID == nil {
		s.metrics.AccessDenied.Inc()
		return nil, apperrors.Forbidden("access denied")
	}
	patientID := *caller.PatientID

	var data []byte
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		result, err := s.results.Get(ctx, resultID)
		if err != nil {
			return apperrors.Forbidden("access denied")
		}
		request, err := s.requests.Get(ctx, result.TestRequestID)
		if err != nil {
			return apperrors.Forbidden("access denied")
		}
		if request.PatientID != patientID || result.Status != model.ResultStatusApproved {
			return apperrors.Forbidden("access denied")
		}

		grant, err := s.access.GetActive(ctx, resultID, patientID, s.now())
		if err != nil {
			return apperrors.Forbidden("access denied")
		}
		if !VerifyAccessCode(accessCode, grant.AccessCode) {
			return apperrors.Forbidden("access denied")
		}

		if err := s.verifyIntegrity(ctx, result, "access"); err != nil {
			return err
		}

		if result.ArtifactPath == nil || !s.store.Exists(*result.ArtifactPath) {
			return apperrors.Forbidden("access denied")
		}
		data, err = s.store.Read(*result.ArtifactPath)
		if err != nil {
			return apperrors.Storage(err)
		}

		if err := s.auditLog(ctx, caller.UserID, model.AuditAccessResult, result.ID,
			fmt.Sprintf("patient accessed result %s", result.ID)); err != nil {
			return err
		}
		return s.emitEvent(ctx, model.EventResultAccessed, model.ChannelDoctor, map[string]any{
			"resultId":  result.ID,
			"patientId": patientID,
		})
	})
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrForbidden) {
			s.metrics.AccessDenied.Inc()
		}
		return nil, err
	}

	s.metrics.ResultsAccessed.Inc()
	return data, nil
}

// List returns results visible to the caller: doctors see results on their
// own requests, technicians their own submissions, patients only approved
// results on their own requests.
func (s *Service) List(ctx context.Context, caller *model.Caller, filters *model.ResultFilters) ([]*model.TestResult, error) {
	switch caller.Role {
	case model.RoleDoctor:
		filters.DoctorID = caller.UserID
	case model.RoleLabTechnician:
		filters.LabTechnicianID = caller.UserID
	case model.RolePatient:
		if caller.PatientID == nil {
			return nil, apperrors.Forbidden("access denied")
		}
		filters.PatientID = *caller.PatientID
		filters.Status = model.ResultStatusApproved
	case model.RoleAdmin:
		// Unfiltered.
	default:
		return nil, apperrors.Forbidden("access denied")
	}

	results, err := s.results.List(ctx, filters)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		decodeParams(r)
	}
	return results, nil
}

// Get returns one result subject to the same role scoping as List.
func (s *Service) Get(ctx context.Context, caller *model.Caller, id uuid.UUID) (*model.TestResult, error) {
	result, err := s.results.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	request, err := s.requests.Get(ctx, result.TestRequestID)
	if err != nil {
		return nil, err
	}

	switch caller.Role {
	case model.RoleAdmin:
	case model.RoleDoctor:
		if request.DoctorID != caller.UserID {
			return nil, apperrors.NotFound("test result", nil)
		}
	case model.RoleLabTechnician:
		if result.LabTechnicianID != caller.UserID {
			return nil, apperrors.NotFound("test result", nil)
		}
	case model.RolePatient:
		if caller.PatientID == nil || request.PatientID != *caller.PatientID ||
			result.Status != model.ResultStatusApproved {
			return nil, apperrors.NotFound("test result", nil)
		}
	default:
		return nil, apperrors.NotFound("test result", nil)
	}

	decodeParams(result)
	return result, nil
}

// verifyIntegrity recomputes the digest over the currently stored payload
// and compares it to the digest recorded at submission.
func (s *Service) verifyIntegrity(ctx context.Context, result *model.TestResult, stage string) error {
	var fileBytes []byte
	if result.ResultType == model.ResultTypeFile {
		if result.ResultFilePath == nil {
			s.metrics.TamperDetections.WithLabelValues(stage).Inc()
			return apperrors.Integrity("result file missing")
		}
		var err error
		fileBytes, err = s.store.Read(*result.ResultFilePath)
		if err != nil {
			return apperrors.Storage(err)
		}
	}

	current, err := digestOf(result, fileBytes)
	if err != nil {
		return apperrors.Internal(err)
	}
	if current != result.ResultHash {
		s.metrics.TamperDetections.WithLabelValues(stage).Inc()
		s.logger.Warn("digest mismatch detected",
			"result_id", result.ID.String(), "stage", stage)
		return apperrors.Integrity("result data tampered")
	}
	return nil
}

func (s *Service) advanceRequest(ctx context.Context, request *model.TestRequest, next model.RequestStatus) error {
	if !request.Status.CanTransition(next) {
		return apperrors.Precondition(
			fmt.Sprintf("cannot move request from %s to %s", request.Status, next))
	}
	request.Status = next
	return s.requests.Update(ctx, request)
}

func (s *Service) auditLog(ctx context.Context, userID uuid.UUID, action string, entityID uuid.UUID, details string) error {
	return s.audit.Create(ctx, &model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityType: "TestResult",
		EntityID:   entityID,
		Details:    details,
	})
}

func (s *Service) emitEvent(ctx context.Context, eventType, channel string, payload map[string]any) error {
	event, err := model.NewOutboxEvent(eventType, channel, payload)
	if err != nil {
		return apperrors.Internal(err)
	}
	return s.outbox.Create(ctx, event)
}

func (s *Service) sendResultEmail(patient *model.Patient, test *model.Test, resultID uuid.UUID, code string, expiresAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.mailer.SendResultReady(ctx, patient.Email, patient.FullName(), test.Name, resultID, code, expiresAt); err != nil {
		s.logger.Error(err, "failed to send result email",
			"result_id", resultID.String(), "patient_id", patient.ID.String())
	}
}

func decodeParams(r *model.TestResult) {
	if r.ResultType == model.ResultTypeManual && len(r.ResultsJSON) > 0 {
		_ = json.Unmarshal(r.ResultsJSON, &r.Results)
	}
}
