package models

import "strings"

// Districts is the closed set of Haryana districts issues are routed to.
var Districts = []string{
	"Ambala",
	"Bhiwani",
	"Charkhi Dadri",
	"Faridabad",
	"Fatehabad",
	"Gurugram",
	"Hisar",
	"Jhajjar",
	"Jind",
	"Kaithal",
	"Karnal",
	"Kurukshetra",
	"Mahendragarh",
	"Nuh",
	"Palwal",
	"Panchkula",
	"Panipat",
	"Rewari",
	"Rohtak",
	"Sirsa",
	"Sonipat",
	"Yamunanagar",
}

// CanonicalDistrict returns the enumeration spelling for raw, matched case-insensitively.
func CanonicalDistrict(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	for _, district := range Districts {
		if strings.EqualFold(district, trimmed) {
			return district, true
		}
	}
	return "", false
}

// IsValidDistrict reports whether raw names one of the districts.
func IsValidDistrict(raw string) bool {
	_, ok := CanonicalDistrict(raw)
	return ok
}
