package validation

import (
	"regexp"
	"strings"
	"sync"

	"github.com/smallbiznis/fnol/internal/config"
	"github.com/ttacon/libphonenumber"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	phoneJunk      = regexp.MustCompile(`[\s\-().]+`)
	genericMsisdn  = regexp.MustCompile(`^\+[0-9]{10,15}$`)
	jurisdictionRe = regexp.MustCompile(`^[A-Z]{2}$`)
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Rules *config.CountryRulesHolder
}

// Service validates jurisdiction-specific field formats. It is purely a
// string validator and never touches storage.
type Service struct {
	log   *zap.Logger
	rules *config.CountryRulesHolder

	mu    sync.RWMutex
	cache map[string]*regexp.Regexp
}

func New(p Params) *Service {
	return &Service{
		log:   p.Log.Named("validation.service"),
		rules: p.Rules,
		cache: make(map[string]*regexp.Regexp),
	}
}

var Module = fx.Module("validation.service",
	fx.Provide(New),
)

// ValidateAll checks every jurisdiction-specific field and collects all
// failures instead of stopping at the first. A nil return means the
// submission is acceptable.
func (s *Service) ValidateAll(jurisdiction, mobileNumber, nationalID, plateNumber, plateJurisdiction string) error {
	var errs Errors

	jurisdiction = strings.ToUpper(strings.TrimSpace(jurisdiction))
	if !jurisdictionRe.MatchString(jurisdiction) {
		errs = append(errs, FieldError{
			Field:   "jurisdiction",
			Code:    "INVALID_COUNTRY",
			Message: "Invalid or unsupported jurisdiction code: " + jurisdiction,
		})
	} else if _, ok := s.rules.Rule(jurisdiction); !ok {
		errs = append(errs, FieldError{
			Field:   "jurisdiction",
			Code:    "INVALID_COUNTRY",
			Message: "Invalid or unsupported jurisdiction code: " + jurisdiction,
		})
	}

	if fieldErr := s.ValidateMobileNumber(mobileNumber, jurisdiction); fieldErr != nil {
		errs = append(errs, *fieldErr)
	}
	if fieldErr := s.ValidateNationalID(nationalID, jurisdiction); fieldErr != nil {
		errs = append(errs, *fieldErr)
	}
	if plateJurisdiction == "" {
		plateJurisdiction = jurisdiction
	}
	if fieldErr := s.ValidatePlateNumber(plateNumber, plateJurisdiction); fieldErr != nil {
		errs = append(errs, *fieldErr)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateMobileNumber checks the number against the jurisdiction's prefix
// and length rules. Jurisdictions without configured rules fall back to
// libphonenumber parsing.
func (s *Service) ValidateMobileNumber(mobileNumber, jurisdiction string) *FieldError {
	if strings.TrimSpace(mobileNumber) == "" {
		return &FieldError{Field: "mobileNumber", Code: "REQUIRED", Message: "Mobile number is required"}
	}

	normalized := NormalizeMobileNumber(mobileNumber)

	rule, ok := s.rules.Rule(jurisdiction)
	if !ok {
		if !genericMsisdn.MatchString(normalized) {
			return &FieldError{
				Field:   "mobileNumber",
				Code:    "INVALID_FORMAT",
				Message: "Invalid mobile number format. Expected international format: +XXXXXXXXXXXX",
			}
		}
		parsed, err := libphonenumber.Parse(normalized, strings.ToUpper(jurisdiction))
		if err != nil || !libphonenumber.IsValidNumber(parsed) {
			return &FieldError{
				Field:   "mobileNumber",
				Code:    "INVALID_FORMAT",
				Message: "Mobile number is not a valid phone number",
			}
		}
		return nil
	}

	if !strings.HasPrefix(normalized, rule.MsisdnPrefix) {
		return &FieldError{
			Field:   "mobileNumber",
			Code:    "INVALID_PREFIX",
			Message: "Mobile number must start with " + rule.MsisdnPrefix + " for " + rule.Name,
		}
	}
	if len(normalized) != rule.MsisdnLength {
		return &FieldError{
			Field:   "mobileNumber",
			Code:    "INVALID_LENGTH",
			Message: "Mobile number must be " + rule.MsisdnPrefix + " plus national digits for " + rule.Name,
		}
	}
	return nil
}

// ValidateNationalID checks the identity document format for the
// jurisdiction. Jurisdictions without a configured pattern accept any
// non-blank value.
func (s *Service) ValidateNationalID(nationalID, jurisdiction string) *FieldError {
	if strings.TrimSpace(nationalID) == "" {
		return &FieldError{Field: "nationalId", Code: "REQUIRED", Message: "National ID is required"}
	}

	rule, ok := s.rules.Rule(jurisdiction)
	if !ok || rule.NationalIDPattern == "" {
		return nil
	}

	pattern, err := s.compile(rule.NationalIDPattern)
	if err != nil {
		s.log.Warn("invalid national id pattern, skipping check",
			zap.String("jurisdiction", jurisdiction),
			zap.Error(err),
		)
		return nil
	}
	if !pattern.MatchString(strings.TrimSpace(nationalID)) {
		return &FieldError{
			Field:   "nationalId",
			Code:    "INVALID_FORMAT",
			Message: "Invalid " + rule.NationalIDName + " format for " + rule.Name,
		}
	}
	return nil
}

// ValidatePlateNumber checks the plate format against the plate's own
// jurisdiction, which may differ from the case jurisdiction for cross-border
// incidents.
func (s *Service) ValidatePlateNumber(plateNumber, jurisdiction string) *FieldError {
	if strings.TrimSpace(plateNumber) == "" {
		return &FieldError{Field: "plateNumber", Code: "REQUIRED", Message: "Plate number is required"}
	}

	rule, ok := s.rules.Rule(jurisdiction)
	if !ok || rule.PlatePattern == "" {
		return nil
	}

	pattern, err := s.compile(rule.PlatePattern)
	if err != nil {
		s.log.Warn("invalid plate pattern, skipping check",
			zap.String("jurisdiction", jurisdiction),
			zap.Error(err),
		)
		return nil
	}
	if !pattern.MatchString(strings.ToUpper(strings.TrimSpace(plateNumber))) {
		return &FieldError{
			Field:   "plateNumber",
			Code:    "INVALID_FORMAT",
			Message: "Invalid plate number format for " + rule.Name,
		}
	}
	return nil
}

// NormalizeMobileNumber strips separators and rewrites the 00 international
// prefix to +.
func NormalizeMobileNumber(mobileNumber string) string {
	normalized := phoneJunk.ReplaceAllString(mobileNumber, "")
	if !strings.HasPrefix(normalized, "+") && strings.HasPrefix(normalized, "00") {
		normalized = "+" + normalized[2:]
	}
	return normalized
}

func (s *Service) compile(pattern string) (*regexp.Regexp, error) {
	s.mu.RLock()
	compiled, ok := s.cache[pattern]
	s.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[pattern] = compiled
	s.mu.Unlock()
	return compiled, nil
}
