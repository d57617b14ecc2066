package detect

import (
	"errors"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateDetection checks the structural fields of d and, when textLen is
// non-negative, that the span lies inside a text of that many bytes.
func ValidateDetection(d Detection, textLen int) error {
	if err := validate.Struct(d); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ValidationError{Category: d.Category, Field: strings.ToLower(fe.Field()), Reason: describeTag(fe.Tag())}
		}
		return &ValidationError{Category: d.Category, Field: "detection", Reason: err.Error()}
	}
	if math.IsNaN(d.Confidence) {
		return &ValidationError{Category: d.Category, Field: "confidence", Reason: "is NaN"}
	}
	if textLen >= 0 && d.End > textLen {
		return &ValidationError{Category: d.Category, Field: "end", Reason: "exceeds text length"}
	}
	return nil
}

// ValidateBatch validates every detection in b against text. The first
// failure is returned with its category and position filled in.
func ValidateBatch(text string, b Batch) error {
	for _, c := range b.Categories() {
		for i, d := range b[c] {
			if d.Category == "" {
				d.Category = c
			}
			if err := ValidateDetection(d, len(text)); err != nil {
				var ve *ValidationError
				if errors.As(err, &ve) {
					ve.Category = c
					ve.Index = i
				}
				return err
			}
		}
	}
	return nil
}

func describeTag(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "gte":
		return "must not be negative"
	case "gtefield":
		return "must not precede start"
	default:
		return "failed " + tag
	}
}
