package zeebe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/fnol/internal/config"
	fnoldomain "github.com/smallbiznis/fnol/internal/fnol/domain"
	"github.com/smallbiznis/fnol/internal/workflow/domain"
	"go.uber.org/zap"
)

// Starter creates process instances over the Zeebe REST gateway.
type Starter struct {
	log       *zap.Logger
	client    *http.Client
	baseURL   string
	authToken string
	processID string
}

func NewStarter(cfg config.WorkflowConfig, log *zap.Logger) *Starter {
	return &Starter{
		log:       log.Named("workflow.zeebe"),
		client:    &http.Client{Timeout: cfg.StartTimeout},
		baseURL:   strings.TrimRight(cfg.GatewayURL, "/"),
		authToken: cfg.AuthToken,
		processID: cfg.ProcessID,
	}
}

type createInstanceRequest struct {
	ProcessDefinitionID string         `json:"processDefinitionId"`
	Variables           map[string]any `json:"variables"`
}

type createInstanceResponse struct {
	ProcessInstanceKey json.Number `json:"processInstanceKey"`
}

// Start creates one process instance for the case. Timeouts surface as
// unknown outcome because the broker may have created the instance anyway;
// such failures must not be retried blindly.
func (s *Starter) Start(ctx context.Context, record fnoldomain.Case) (string, error) {
	body, err := json.Marshal(createInstanceRequest{
		ProcessDefinitionID: s.processID,
		Variables:           BuildVariables(record),
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode variables: %v", domain.ErrStartFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v2/process-instances", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrStartFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if isAmbiguous(err) {
			s.log.Error("process start timed out, outcome unknown",
				zap.String("case_id", record.CaseID),
				zap.Error(err),
			)
			return "", fmt.Errorf("%w: %v", domain.ErrOutcomeUnknown, err)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrStartFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: gateway returned %d: %s", domain.ErrStartFailed, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var created createInstanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		// The instance exists but we lost its handle.
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrOutcomeUnknown, err)
	}

	handle := created.ProcessInstanceKey.String()
	s.log.Info("process started",
		zap.String("case_id", record.CaseID),
		zap.String("process_instance_key", handle),
	)
	return handle, nil
}

func isAmbiguous(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// BuildVariables flattens the case into the variable map the process
// definition reads, including the inputs of its DMN decision.
func BuildVariables(record fnoldomain.Case) map[string]any {
	var attachments []fnoldomain.Attachment
	if len(record.Attachments) > 0 {
		_ = json.Unmarshal(record.Attachments, &attachments)
	}

	return map[string]any{
		"fnolId":        record.CaseID,
		"correlationId": record.CorrelationID,
		"country":       record.Jurisdiction,
		"mobileNumber":  record.MobileNumber,

		"injuries":     record.HasInjury,
		"drivable":     record.Drivable,
		"coverageType": string(record.CoverageClass),
		"isFleet":      record.FleetFlag,

		"severityLevel": string(record.SeverityLevel),
		"route":         string(record.Route),

		"insuredName":       record.InsuredName,
		"nationalId":        record.NationalID,
		"preferredLanguage": record.LanguageCode,

		"plateNumber":  record.PlateNumber,
		"plateCountry": record.PlateJurisdiction,
		"vehicleType":  record.VehicleType,
		"policyNumber": record.PolicyNumber,

		"lossDateTime":       record.LossAt.Format(time.RFC3339),
		"lossLocation":       record.LossLocation,
		"description":        record.Description,
		"policeReportNumber": record.PoliceReportNumber,

		"attachmentCount": len(attachments),
	}
}
