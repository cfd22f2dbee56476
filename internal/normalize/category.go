// Package normalize turns raw source cells into canonical values: category
// symbols, truncated rates, integer years and header keys.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lox/headcount/internal/models"
)

var (
	ErrUnrecognizedLabel = errors.New("unrecognized category label")
	ErrUnknownSubject    = errors.New("unknown subject")
)

type categoryRule struct {
	pattern  *regexp.Regexp
	category models.Category
}

// Rule order matters: "pacific islander" must win over anything more
// generic, and "female" must be tested before "male".
var categoryRules = []categoryRule{
	{regexp.MustCompile(`pacific.*island`), models.PacificIslander},
	{regexp.MustCompile(`hispanic`), models.Hispanic},
	{regexp.MustCompile(`american`), models.NativeAmerican},
	{regexp.MustCompile(`asian`), models.Asian},
	{regexp.MustCompile(`black`), models.Black},
	{regexp.MustCompile(`female`), models.Female},
	{regexp.MustCompile(`male`), models.Male},
	{regexp.MustCompile(`all`), models.All},
	{regexp.MustCompile(`two`), models.TwoOrMore},
	{regexp.MustCompile(`white`), models.White},
}

// Category maps a free-text demographic label to its closed-set symbol.
func Category(label string) (models.Category, error) {
	lower := strings.ToLower(label)
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(lower) {
			return rule.category, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnrecognizedLabel, label)
}

// Subject maps a score column value such as "Math" to its subject.
func Subject(s string) (models.Subject, error) {
	subject := models.Subject(strings.ToLower(strings.TrimSpace(s)))
	if !subject.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSubject, s)
	}
	return subject, nil
}
