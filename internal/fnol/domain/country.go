package domain

import "strings"

// Country carries the per-jurisdiction metadata used for display and for the
// default validation rules.
type Country struct {
	Code                    string
	Name                    string
	ShortCode               string
	PhonePrefix             string
	Timezone                string
	CurrencyCode            string
	CurrencySymbol          string
	NationalIDName          string
	VehicleRegistrationName string
}

var countries = []Country{
	{Code: "AE", Name: "United Arab Emirates", ShortCode: "UAE", PhonePrefix: "+971", Timezone: "Asia/Dubai", CurrencyCode: "AED", CurrencySymbol: "د.إ", NationalIDName: "Emirates ID", VehicleRegistrationName: "Mulkiya"},
	{Code: "SA", Name: "Saudi Arabia", ShortCode: "KSA", PhonePrefix: "+966", Timezone: "Asia/Riyadh", CurrencyCode: "SAR", CurrencySymbol: "ر.س", NationalIDName: "Iqama/National ID", VehicleRegistrationName: "Istimara"},
	{Code: "QA", Name: "Qatar", ShortCode: "QAT", PhonePrefix: "+974", Timezone: "Asia/Qatar", CurrencyCode: "QAR", CurrencySymbol: "ر.ق", NationalIDName: "QID", VehicleRegistrationName: "Istemara"},
	{Code: "BH", Name: "Bahrain", ShortCode: "BHR", PhonePrefix: "+973", Timezone: "Asia/Bahrain", CurrencyCode: "BHD", CurrencySymbol: "د.ب", NationalIDName: "CPR", VehicleRegistrationName: "Vehicle Registration Card"},
	{Code: "KW", Name: "Kuwait", ShortCode: "KWT", PhonePrefix: "+965", Timezone: "Asia/Kuwait", CurrencyCode: "KWD", CurrencySymbol: "د.ك", NationalIDName: "Civil ID", VehicleRegistrationName: "Daftar"},
	{Code: "OM", Name: "Oman", ShortCode: "OMN", PhonePrefix: "+968", Timezone: "Asia/Muscat", CurrencyCode: "OMR", CurrencySymbol: "ر.ع", NationalIDName: "National ID", VehicleRegistrationName: "Mulkiya"},
}

// Countries returns the supported jurisdictions in a stable order.
func Countries() []Country {
	out := make([]Country, len(countries))
	copy(out, countries)
	return out
}

// CountryFromCode resolves an ISO 2-letter jurisdiction code.
func CountryFromCode(code string) (Country, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range countries {
		if c.Code == code {
			return c, true
		}
	}
	return Country{}, false
}

// CountryFromPhonePrefix resolves a jurisdiction from its dialing prefix.
func CountryFromPhonePrefix(prefix string) (Country, bool) {
	prefix = strings.TrimSpace(prefix)
	for _, c := range countries {
		if c.PhonePrefix == prefix {
			return c, true
		}
	}
	return Country{}, false
}

// IsSupportedJurisdiction reports whether the code names a supported market.
func IsSupportedJurisdiction(code string) bool {
	_, ok := CountryFromCode(code)
	return ok
}
