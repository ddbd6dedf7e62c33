package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	fnoldomain "github.com/smallbiznis/fnol/internal/fnol/domain"
)

type attachmentRequest struct {
	URL         string `json:"url"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type submitFnolRequest struct {
	CountryCode  string `json:"countryCode"`
	MobileNumber string `json:"mobileNumber"`
	NationalID   string `json:"nationalId"`
	ReporterName string `json:"reporterName"`

	PlateNumber  string `json:"plateNumber"`
	PlateCountry string `json:"plateCountry"`
	VehicleType  string `json:"vehicleType"`

	PolicyNumber string `json:"policyNumber"`
	CoverageType string `json:"coverageType"`
	IsFleet      bool   `json:"isFleet"`

	IncidentDate     string `json:"incidentDate"`
	IncidentTime     string `json:"incidentTime"`
	IncidentLocation string `json:"incidentLocation"`
	Description      string `json:"description"`

	IsDrivable         bool   `json:"isDrivable"`
	HasInjuries        bool   `json:"hasInjuries"`
	PoliceReportNumber string `json:"policeReportNumber"`

	PreferredLanguage string `json:"preferredLanguage"`

	Attachments []attachmentRequest `json:"attachments"`
}

type submitFnolResponse struct {
	FnolID             string    `json:"fnolId"`
	Status             string    `json:"status"`
	SeverityLevel      string    `json:"severityLevel"`
	Route              string    `json:"route"`
	ProcessInstanceKey string    `json:"processInstanceKey,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	Duplicate          bool      `json:"duplicate"`
}

type fnolStatusResponse struct {
	FnolID             string    `json:"fnolId"`
	Status             string    `json:"status"`
	SeverityLevel      string    `json:"severityLevel"`
	Route              string    `json:"route"`
	ProcessInstanceKey string    `json:"processInstanceKey,omitempty"`
	SubmittedAt        time.Time `json:"submittedAt"`
}

func (s *Server) SubmitFnol(c *gin.Context) {
	var req submitFnolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "INVALID_JSON", "request body is not valid JSON"))
		return
	}

	lossAt, err := parseIncidentTimestamp(req.IncidentDate, req.IncidentTime)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	coverage := strings.TrimSpace(req.CoverageType)
	if coverage == "" {
		coverage = string(fnoldomain.CoverageBasic)
	}

	attachments := make([]fnoldomain.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		attachments = append(attachments, fnoldomain.Attachment{
			FileName:    a.Description,
			ContentType: a.Type,
			URL:         a.URL,
		})
	}

	resp, err := s.fnolSvc.Submit(c.Request.Context(), fnoldomain.SubmitRequest{
		IdempotencyToken:   c.GetHeader(headerIdempotencyKey),
		CorrelationID:      c.GetHeader(headerCorrelationID),
		Jurisdiction:       req.CountryCode,
		PolicyNumber:       req.PolicyNumber,
		InsuredName:        req.ReporterName,
		NationalID:         req.NationalID,
		MobileNumber:       req.MobileNumber,
		LanguageCode:       strings.ToLower(strings.TrimSpace(req.PreferredLanguage)),
		PlateNumber:        req.PlateNumber,
		PlateJurisdiction:  req.PlateCountry,
		CoverageClass:      coverage,
		FleetFlag:          req.IsFleet,
		VehicleType:        req.VehicleType,
		LossAt:             lossAt,
		LossLocation:       req.IncidentLocation,
		Description:        req.Description,
		PoliceReportNumber: req.PoliceReportNumber,
		Drivable:           req.IsDrivable,
		HasInjury:          req.HasInjuries,
		Attachments:        attachments,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("case_id", resp.CaseID)

	status := http.StatusCreated
	if resp.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, submitFnolResponse{
		FnolID:             resp.CaseID,
		Status:             fnoldomain.CaseStatusSubmitted,
		SeverityLevel:      string(resp.SeverityLevel),
		Route:              string(resp.Route),
		ProcessInstanceKey: resp.WorkflowHandle,
		CreatedAt:          resp.SubmittedAt,
		Duplicate:          resp.Duplicate,
	})
}

func (s *Server) GetFnolDetail(c *gin.Context) {
	record, err := s.fnolSvc.GetByCaseID(c.Request.Context(), c.Param("fnolId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("case_id", record.CaseID)
	c.JSON(http.StatusOK, record)
}

func (s *Server) GetFnolStatus(c *gin.Context) {
	status, err := s.fnolSvc.GetStatus(c.Request.Context(), c.Param("fnolId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("case_id", status.CaseID)
	c.JSON(http.StatusOK, fnolStatusResponse{
		FnolID:             status.CaseID,
		Status:             status.Status,
		SeverityLevel:      string(status.SeverityLevel),
		Route:              string(status.Route),
		ProcessInstanceKey: status.WorkflowHandle,
		SubmittedAt:        status.SubmittedAt,
	})
}

func (s *Server) ListCountries(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"countries": fnoldomain.Countries()})
}

// parseIncidentTimestamp combines the date (required) and time (optional)
// request fields into a UTC instant.
func parseIncidentTimestamp(date, clock string) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, newValidationError("incidentDate", "REQUIRED", "Incident date is required")
	}

	layout := "2006-01-02"
	value := date
	if clock = strings.TrimSpace(clock); clock != "" {
		switch strings.Count(clock, ":") {
		case 1:
			layout = "2006-01-02 15:04"
		default:
			layout = "2006-01-02 15:04:05"
		}
		value = date + " " + clock
	}

	ts, err := time.ParseInLocation(layout, value, time.UTC)
	if err != nil {
		return time.Time{}, newValidationError("incidentDate", "INVALID_FORMAT", "Incident date must be YYYY-MM-DD with optional HH:mm[:ss] time")
	}
	return ts, nil
}
