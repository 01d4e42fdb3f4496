// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collect

import "regexp"

// parameterHints are signs that an abstract reports experimental
// parameters: value+unit tokens, measurement language followed by a
// number, or device vocabulary.
var parameterHints = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\d+\.?\d*\s*(keV|eV|K)`),
	regexp.MustCompile(`(?i)\d+\.?\d*\s*[×x]\s*10\^?\d+\s*(m\^?-?3|cm\^?-?3)`),
	regexp.MustCompile(`(?i)temperature.*\d+`),
	regexp.MustCompile(`(?i)density.*\d+`),
	regexp.MustCompile(`(?i)(measured|observed|achieved|reached).*\d+`),
	regexp.MustCompile(`(?i)experimental.*\d+`),
	regexp.MustCompile(`(?i)tokamak|plasma|discharge|confinement`),
}

// LikelyHasParameters reports whether an abstract looks like it carries
// temperature or density measurements. It errs on the permissive side:
// the extraction stage is the real judge, this only trims papers with no
// numbers and no plasma vocabulary at all.
func LikelyHasParameters(abstract string) bool {
	for _, hint := range parameterHints {
		if hint.MatchString(abstract) {
			return true
		}
	}
	return false
}
