package subscriber

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/letsrace/digest/app/catalog"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// ValidateSubscription checks a subscription payload against the catalog and
// returns one message per problem. An empty slice means the payload is valid.
func ValidateSubscription(email, region string, disciplines []string, sendDay string, cat *catalog.Catalog) []string {
	var errors []string

	if !ValidEmail(email) {
		errors = append(errors, "Please provide a valid email address.")
	}

	if region == "" || !cat.ValidRegion(region) {
		errors = append(errors, "Please select a valid region.")
	}

	if len(disciplines) == 0 {
		errors = append(errors, "Please select at least one discipline.")
	} else {
		var invalid []string
		for _, d := range disciplines {
			if !cat.ValidDiscipline(d) {
				invalid = append(invalid, d)
			}
		}
		if len(invalid) > 0 {
			errors = append(errors, fmt.Sprintf("Invalid disciplines: %s", strings.Join(invalid, ", ")))
		}
	}

	if sendDay != "" && !catalog.ValidWeekday(sendDay) {
		errors = append(errors, "Please select a valid weekday.")
	}

	return errors
}
